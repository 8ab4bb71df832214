package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/sds011-gateway/internal/config"
	"github.com/taoyao-code/sds011-gateway/internal/coremodel"
)

type recordingSource struct {
	cmds chan *coremodel.CoreCommand
}

func (r *recordingSource) SendCoreCommand(_ context.Context, cmd *coremodel.CoreCommand) error {
	r.cmds <- cmd
	return nil
}

func TestCommandSubscriber_HandleMessage(t *testing.T) {
	src := &recordingSource{cmds: make(chan *coremodel.CoreCommand, 1)}
	s := NewCommandSubscriber(nil, "", src, nil)

	require.NoError(t, s.HandleMessage(context.Background(), `{"command":"setWorkingPeriod","parameter":"5","deviceId":"0xA160"}`))
	cmd := <-src.cmds
	assert.Equal(t, "setWorkingPeriod", cmd.Name)
	assert.Equal(t, "5", cmd.Parameter)
	require.NotNil(t, cmd.Target)
	assert.Equal(t, coremodel.DeviceID(0xA160), *cmd.Target)

	assert.Error(t, s.HandleMessage(context.Background(), `not json`))
	assert.Error(t, s.HandleMessage(context.Background(), `{"parameter":"5"}`))
}

// 需要真实 Redis：设置 SDS011_TEST_REDIS_ADDR 后运行
func TestCommandSubscriber_Integration(t *testing.T) {
	addr := os.Getenv("SDS011_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SDS011_TEST_REDIS_ADDR not set, skipping redis integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, cfgpkg.RedisConfig{Enabled: true, Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	src := &recordingSource{cmds: make(chan *coremodel.CoreCommand, 1)}
	s := NewCommandSubscriber(client, "sds011:test:commands", src, nil)
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, err := client.Publish(ctx, "sds011:test:commands", `{"command":"sleep"}`).Result()
		return err == nil && n > 0
	}, 2*time.Second, 50*time.Millisecond)

	select {
	case cmd := <-src.cmds:
		assert.Equal(t, "sleep", cmd.Name)
	case <-ctx.Done():
		t.Fatal("command not received")
	}
}
