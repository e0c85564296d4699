package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/internal/fixtures"
)

func TestNotifications(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	p := NewPlugin(fixtures.NewTestLogger(t), &out)
	p.OnNotifications([]*megatron.Notification{
		{
			Type:       "CLIENT_CONNECTED",
			Context:    megatron.NewContext("z", "1", "a", "2"),
			Attributes: map[string]string{"reason": "startup"},
		},
		{Type: "OTHER", Context: megatron.NewContext()},
	})
	p.OnNotifications(nil)
	p.Close()

	assert.Equal(t, "NOTIFICATION: CLIENT_CONNECTED\n"+
		" - reason=startup\n"+
		"{\"a\":\"2\",\"z\":\"1\"}\n"+
		"NOTIFICATION: OTHER\n"+
		"{}\n", out.String())
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	p := NewPlugin(fixtures.NewTestLogger(t), &out)
	assert.Equal(t, PluginName, p.Name())
	p.OnStatistics([]*megatron.ContextualStatistics{{
		Context: megatron.NewContext(megatron.ServerKey, "s1"),
		Statistics: map[string]*megatron.Statistic{
			"b": megatron.NewStatistic(megatron.KindGauge, 2.5),
			"a": megatron.NewStatistic(megatron.KindCounter, 1, 3),
			"t": megatron.NewStatistic(megatron.KindTable, 1),
		},
	}})

	assert.Equal(t, "STATISTICS:\n"+
		" - a=3\n"+
		" - b=2.5\n"+
		"{\"serverId\":\"s1\"}\n", out.String())
}
