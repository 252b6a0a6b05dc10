// Package hoopstats holds the release version of the hoopstats chatbot.
package hoopstats

// Version is the current version of hoopstats.
const Version = "0.1.0"
