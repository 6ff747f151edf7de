package utlx

// Version is the release version of the language implementation.
const Version = "1.0.0"

// BuildDate is stamped by the build (-ldflags "-X ...BuildDate=...").
var BuildDate = "unknown"
