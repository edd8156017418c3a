package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/factory"
	"github.com/replbridge/replbridge/src/bridge/internal/jsonrpc2mock"
)

func getTestGateway(t *testing.T) (Gateway, *jsonrpc2mock.MockConn, context.Context) {
	t.Helper()
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	g := New(zap.NewNop())

	mockConn := jsonrpc2mock.NewMockConn(ctrl)
	var conn jsonrpc2.Conn = mockConn
	require.NoError(t, g.RegisterClient(ctx, factory.UUID(), &conn))
	return g, mockConn, ctx
}

func TestRegisterClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	g := gateway{
		connections: make(map[uuid.UUID]jsonrpc2.Conn),
		logger:      zap.NewNop(),
	}

	for i := 0; i < 10; i++ {
		mockConn := jsonrpc2mock.NewMockConn(ctrl)
		var conn jsonrpc2.Conn = mockConn
		err := g.RegisterClient(ctx, factory.UUID(), &conn)
		assert.NoError(t, err)
	}

	assert.Len(t, g.connections, 10)
}

func TestDeregisterClient(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	g := gateway{
		connections: make(map[uuid.UUID]jsonrpc2.Conn),
		logger:      zap.NewNop(),
	}

	for i := 0; i < 10; i++ {
		mockConn := jsonrpc2mock.NewMockConn(ctrl)
		var conn jsonrpc2.Conn = mockConn
		require.NoError(t, g.RegisterClient(ctx, factory.UUID(), &conn))
	}

	for key := range g.connections {
		assert.NotNil(t, g.connections[key])
		err := g.DeregisterClient(ctx, key)
		assert.NoError(t, err)
		assert.Nil(t, g.connections[key])
	}
	assert.Len(t, g.connections, 0)
}

func TestReady(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	params := &ReadyParams{Protocol: entity.ProtocolNrepl, Session: "abc", Address: "127.0.0.1:7000"}

	t.Run("notification success", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(MethodReady), gomock.Eq(params)).Return(nil)
		assert.NoError(t, g.Ready(ctx, params))
	})
	t.Run("notification failure", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(MethodReady), gomock.Eq(params)).Return(errors.New("error"))
		assert.Error(t, g.Ready(ctx, params))
	})
}

func TestFailed(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	params := &FailedParams{Reason: "connection refused"}
	mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(MethodFailed), gomock.Eq(params)).Return(nil)
	assert.NoError(t, g.Failed(ctx, params))
}

func TestExited(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(MethodExited), gomock.Nil()).Return(nil)
	assert.NoError(t, g.Exited(ctx))
}

func TestBroadcastReachesAllClients(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	g := New(zap.NewNop())

	mocks := make([]*jsonrpc2mock.MockConn, 3)
	for i := range mocks {
		mocks[i] = jsonrpc2mock.NewMockConn(ctrl)
		var conn jsonrpc2.Conn = mocks[i]
		require.NoError(t, g.RegisterClient(ctx, factory.UUID(), &conn))
	}

	params := &FailedParams{Reason: "gone"}
	// One failing client does not block delivery to the rest.
	mocks[0].EXPECT().Notify(gomock.Any(), gomock.Eq(MethodFailed), gomock.Eq(params)).Return(errors.New("broken pipe"))
	mocks[1].EXPECT().Notify(gomock.Any(), gomock.Eq(MethodFailed), gomock.Eq(params)).Return(nil)
	mocks[2].EXPECT().Notify(gomock.Any(), gomock.Eq(MethodFailed), gomock.Eq(params)).Return(nil)

	assert.Error(t, g.Failed(ctx, params))
}

func TestBroadcastNoClients(t *testing.T) {
	g := New(zap.NewNop())
	assert.NoError(t, g.Exited(context.Background()))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
