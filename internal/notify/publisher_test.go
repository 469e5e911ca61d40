package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/hotbuild/internal/config"
)

func TestConnectWithoutURLIsDisabled(t *testing.T) {
	p, err := Connect(config.EventsConfig{}, nil)
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestNilPublisherMethodsAreSafe(t *testing.T) {
	var p *Publisher
	require.NotPanics(t, func() {
		p.Publish(SubjectRunStarted, RunEvent{RunID: "x"})
		p.Close()
	})
}

func TestConnectUnreachableBrokerFails(t *testing.T) {
	_, err := Connect(config.EventsConfig{NATSURL: "nats://127.0.0.1:1"}, nil)
	require.Error(t, err)
}
