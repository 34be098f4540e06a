package version

// Version is the semantic version of the current SafePath release
const Version = "0.1.0"
