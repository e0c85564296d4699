package megatron

import (
	"github.com/spf13/pflag"
)

const (
	// DefaultPrefix is the default global metric prefix of every plugin.
	DefaultPrefix = "megatron"
	// DefaultInput is the default event input, "-" being stdin.
	DefaultInput = "-"
	// DefaultWebAddr is the default address of the internal web server, empty meaning disabled.
	DefaultWebAddr = ""
)

const (
	// ParamInput is the name of parameter with the event input file.
	ParamInput = "input"
	// ParamWebAddr is the name of parameter with the address of the internal web server.
	ParamWebAddr = "web-addr"
	// ParamDefaultTags is the name of parameter with tags appended to every plugin's global tags.
	ParamDefaultTags = "default-tags"
)

// AddFlags adds flags to the specified FlagSet.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ParamInput, DefaultInput, "File to read JSON-lines events from, - for stdin")
	fs.String(ParamWebAddr, DefaultWebAddr, "If set, serve /metrics and /healthcheck on this address")
	fs.StringSlice(ParamDefaultTags, nil, "Comma-separated list of tags added to every tag-aware plugin")
}
