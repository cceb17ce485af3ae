package grpc_control

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stubQuotes struct {
	quoteErr error
}

func (s *stubQuotes) Name() string { return "stub" }

func (s *stubQuotes) LatestTrade(ctx context.Context, exchange, baseAsset string) (*models.MTokenTrade, error) {
	return nil, nil
}

func (s *stubQuotes) LatestReferenceQuote(ctx context.Context) (*models.MReferenceQuote, error) {
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return &models.MReferenceQuote{BaseSymbol: "WBNB", QuoteSymbol: "BUSD", QuotePrice: 312.5}, nil
}

func (s *stubQuotes) Aggregates(ctx context.Context, q models.MAggregateQuery) ([]models.MRawAggregate, error) {
	return nil, nil
}

type idleStream struct{}

func (idleStream) Name() string { return "idle" }

func (idleStream) LatestSwap(ctx context.Context, token string) (*models.MSwap, error) {
	return nil, nil
}

// -----------------------------------------------------------------------------

func startControl(t *testing.T, quotes *stubQuotes) (*ControlClient, *datafeed.Datafeed) {
	t.Helper()
	quiet := logger.NewLoggerWithWriter(&models.MConfig{LogLevel: "ERROR"}, "test", io.Discard)

	feed := datafeed.NewDatafeed(models.MDatafeedConfig{PollIntervalSeconds: 60}, quotes, idleStream{}, quiet)
	t.Cleanup(func() { feed.Close() })

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterControlServer(srv, NewControlService(feed, quiet))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewControlClient(conn), feed
}

// -----------------------------------------------------------------------------

func TestRefreshReferenceAndStatus(t *testing.T) {
	client, _ := startControl(t, &stubQuotes{})
	ctx := context.Background()

	ref, err := client.RefreshReference(ctx)
	require.NoError(t, err)
	assert.Equal(t, "WBNB/BUSD", ref.GetFields()["symbol"].GetStringValue())
	assert.Equal(t, 312.5, ref.GetFields()["rate"].GetNumberValue())

	st, err := client.GetStatus(ctx)
	require.NoError(t, err)
	reference := st.GetFields()["reference"].GetStructValue()
	require.NotNil(t, reference)
	assert.Equal(t, 312.5, reference.GetFields()["rate"].GetNumberValue())
}

func TestRefreshReferenceUnavailable(t *testing.T) {
	client, _ := startControl(t, &stubQuotes{quoteErr: errors.New("rate limited")})

	_, err := client.RefreshReference(context.Background())
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestUnsubscribe(t *testing.T) {
	client, feed := startControl(t, &stubQuotes{})
	ctx := context.Background()

	_, err := client.Unsubscribe(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Unsubscribe(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))

	sym := models.MSymbolDescriptor{Exchange: "Pancake v2", Ticker: "0xcake"}
	_, err = feed.SubscribeBars(sym, "60", "uid-1", func(models.MBar) {})
	require.NoError(t, err)

	res, err := client.Unsubscribe(ctx, "uid-1")
	require.NoError(t, err)
	assert.True(t, res.GetFields()["success"].GetBoolValue())
	assert.Empty(t, feed.Subscriptions())
}
