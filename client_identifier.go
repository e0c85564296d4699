package megatron

import (
	"fmt"
	"strconv"
	"strings"
)

// ClientIdentifier identifies a client connection to the cluster.  Its textual form is
// <pid>@<hostAddress>:<name>:<connectionUid>, where name may itself contain ':'.
type ClientIdentifier struct {
	Pid           int64
	HostAddress   string
	Name          string
	ConnectionUID string
}

// ParseClientIdentifier parses the textual form of a ClientIdentifier.
func ParseClientIdentifier(s string) (ClientIdentifier, error) {
	at := strings.IndexByte(s, '@')
	if at <= 0 {
		return ClientIdentifier{}, fmt.Errorf("invalid client identifier %q: missing pid", s)
	}
	pid, err := strconv.ParseInt(s[:at], 10, 64)
	if err != nil {
		return ClientIdentifier{}, fmt.Errorf("invalid client identifier %q: bad pid: %v", s, err)
	}
	rest := s[at+1:]
	first := strings.IndexByte(rest, ':')
	last := strings.LastIndexByte(rest, ':')
	if first < 0 || first == last {
		return ClientIdentifier{}, fmt.Errorf("invalid client identifier %q: expected host:name:uid", s)
	}
	return ClientIdentifier{
		Pid:           pid,
		HostAddress:   rest[:first],
		Name:          rest[first+1 : last],
		ConnectionUID: rest[last+1:],
	}, nil
}

// String returns the textual form.
func (ci ClientIdentifier) String() string {
	return strconv.FormatInt(ci.Pid, 10) + "@" + ci.HostAddress + ":" + ci.Name + ":" + ci.ConnectionUID
}
