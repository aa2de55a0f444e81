package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/scenebridge/bridgectl/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Msgf("test=%s", t.Name())
}
