package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) *Startup {
	s := NewStartup(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), maxAttempts)
	s.backoffUnit = time.Millisecond
	return s
}

func TestStartup_DependencyOrder(t *testing.T) {
	s := newTestStartup(1)
	var started, stopped []string

	record := func(name string) *Func {
		return &Func{
			Name:    name,
			OnStart: func(context.Context) error { started = append(started, name); return nil },
			OnStop:  func(context.Context) error { stopped = append(stopped, name); return nil },
		}
	}

	server := record("server")
	server.Requires = []string{"migrations"}
	migrations := record("migrations")
	migrations.Requires = []string{"database"}

	s.AddDependency(server)
	s.AddDependency(migrations)
	s.AddDependency(record("database"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"database", "migrations", "server"}, started)
	assert.Equal(t, StartupStatusStarted, s.Status("server"))

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"server", "migrations", "database"}, stopped)
	assert.Equal(t, StartupStatusStopped, s.Status("database"))
}

func TestStartup_RetriesUntilSuccess(t *testing.T) {
	s := newTestStartup(3)
	calls := 0
	s.AddDependency(&Func{
		Name: "database",
		OnStart: func(context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("not yet")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestStartup_GivesUp(t *testing.T) {
	s := newTestStartup(2)
	s.AddDependency(&Func{
		Name:    "database",
		OnStart: func(context.Context) error { return errors.New("refused") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("database"))
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := newTestStartup(1)
	s.AddDependency(&Func{Name: "server", Requires: []string{"cache"}})

	assert.Error(t, s.Start(context.Background()))
}
