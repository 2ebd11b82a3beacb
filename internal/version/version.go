// Package version holds build identity, overridable with -ldflags -X.
package version

var (
	AppName        = "Server Chatter"
	AppDescription = "A friendly Discord bot that joins conversations with generated replies."
	AppVersion     = "dev"
)
