package smf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSMFState(t *testing.T) {
	tests := []struct {
		name string
		res  CommandResult
		want ServiceState
	}{
		{"online", svcsOnline, ServiceState{Exists: true, State: StateOnline}},
		{"offline", svcsOffline, ServiceState{Exists: true, State: StateOffline}},
		{"transitioning", CommandResult{Stdout: "offline*\n"}, ServiceState{Exists: true, State: StateOffline}},
		{"maintenance", CommandResult{Stdout: "maintenance\n"}, ServiceState{Exists: true, State: StateMaintenance}},
		{"not registered", svcsNotFound, ServiceState{Exists: false, State: StateUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner().on("svcs -H -o STATE webapp", tt.res)
			client := NewClientSMF(runner)

			got, err := client.State(context.Background(), "webapp")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientSMFExists(t *testing.T) {
	runner := newFakeRunner().
		on("svcs webapp", svcsListed).
		on("svcs ghost", svcsNotFound)
	client := NewClientSMF(runner)

	ok, err := client.Exists(context.Background(), "webapp")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientSMFPid(t *testing.T) {
	runner := newFakeRunner().
		on("svcs -p myapp", CommandResult{Stdout: "svc:/site/myapp:default 1234"}).
		on("svcs -p full", CommandResult{Stdout: "STATE          STIME    FMRI\n" +
			"online         10:02:11 svc:/site/full:default\n" +
			"               10:02:11     4242 ruby\n" +
			"               10:02:11     4243 4243\n"}).
		on("svcs -p stopped", CommandResult{Stdout: "STATE          STIME    FMRI\ndisabled       10:02:11 svc:/site/stopped:default\n"}).
		on("svcs -p ghost", svcsNotFound)
	client := NewClientSMF(runner)
	ctx := context.Background()

	pid, err := client.Pid(ctx, "myapp")
	require.NoError(t, err)
	assert.Equal(t, 1234, pid)

	pid, err = client.Pid(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, 4243, pid)

	_, err = client.Pid(ctx, "stopped")
	assert.ErrorIs(t, err, ErrPidUnavailable)

	_, err = client.Pid(ctx, "ghost")
	assert.ErrorIs(t, err, ErrPidUnavailable)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
}

func TestClientSMFRefreshManifestImport(t *testing.T) {
	runner := newFakeRunner()
	client := NewClientSMF(runner)

	require.NoError(t, client.RefreshManifestImport(context.Background()))
	assert.Equal(t, []string{
		"svcadm disable -s manifest-import",
		"svcadm enable -s manifest-import",
	}, runner.Calls())
}

func TestClientSMFRefreshEnableFailure(t *testing.T) {
	runner := newFakeRunner().on("svcadm enable -s manifest-import", CommandResult{ExitCode: 3})
	client := NewClientSMF(runner)

	err := client.RefreshManifestImport(context.Background())
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "svcadm enable -s manifest-import", cmdErr.Command.String())
}

func TestClientSMFLaunchFailure(t *testing.T) {
	boom := errors.New("fork/exec svcs: no such file or directory")
	runner := newFakeRunner().fail("svcs webapp", boom)
	client := NewClientSMF(runner)

	_, err := client.Exists(context.Background(), "webapp")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, -1, cmdErr.ExitCode)
	assert.NotContains(t, err.Error(), "exit code")
}

func TestNewClientSMFWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SvcsPath = "/usr/bin/svcs"
	cfg.SvcadmPath = "/usr/sbin/svcadm"
	cfg.ManifestImport = "svc:/system/manifest-import:default"

	runner := newFakeRunner()
	client := NewClientSMFWithConfig(runner, cfg)

	_, _ = client.Exists(context.Background(), "webapp")
	require.NoError(t, client.RefreshManifestImport(context.Background()))

	assert.Equal(t, []string{
		"/usr/bin/svcs webapp",
		"/usr/sbin/svcadm disable -s svc:/system/manifest-import:default",
		"/usr/sbin/svcadm enable -s svc:/system/manifest-import:default",
	}, runner.Calls())

	assert.Equal(t, DefaultSvcsPath, NewClientSMFWithConfig(runner, nil).SvcsPath)
}
