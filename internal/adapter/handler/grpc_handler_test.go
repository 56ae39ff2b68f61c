package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newGRPCClient(t *testing.T, f *fixture) *LibraryClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterLibraryServer(srv, NewGRPCHandler(f.auth, f.library, f.loans, nil))
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

	return NewLibraryClient(conn)
}

func TestGRPC_RequiresSession(t *testing.T) {
	f := newFixture(t)
	client := newGRPCClient(t, f)

	_, err := client.ListCatalog(context.Background(), &ListCatalogRequest{})
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.ListCatalog(WithSession(context.Background(), "no-such-session"), &ListCatalogRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPC_LoanFlow(t *testing.T) {
	f := newFixture(t)
	client := newGRPCClient(t, f)
	entry := f.addBook(t, "Earthsea", 2)
	ctx := WithSession(context.Background(), f.register(t, "ged", false).Session.ID)

	catalog, err := client.ListCatalog(ctx, &ListCatalogRequest{})
	require.NoError(t, err)
	require.Len(t, catalog.Entries, 1)
	assert.Equal(t, "Earthsea", catalog.Entries[0].Book.Name)

	created, err := client.CreateLoan(ctx, &CreateLoanRequest{
		BookID: entry.BookID, Quantity: 2, StartDate: "2024-05-01", EndDate: "2024-05-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", created.Loan.Status)
	assert.NotZero(t, created.Loan.ID)

	_, err = client.CreateLoan(ctx, &CreateLoanRequest{
		BookID: entry.BookID, Quantity: 1, StartDate: "2024-05-01", EndDate: "2024-05-15",
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.CreateLoan(ctx, &CreateLoanRequest{BookID: entry.BookID, Quantity: 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	loans, err := client.ListLoans(ctx, &ListLoansRequest{})
	require.NoError(t, err)
	require.Len(t, loans.Loans, 1)
	assert.Equal(t, "ged", loans.Loans[0].Username)
}

var holdServiceDesc = grpc.ServiceDesc{
	ServiceName: "librarian.test.Hold",
	HandlerType: (*any)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Hold",
		ServerStreams: true,
		Handler: func(_ any, stream grpc.ServerStream) error {
			if err := stream.SendMsg(&ListCatalogRequest{}); err != nil {
				return err
			}
			<-stream.Context().Done()
			return nil
		},
	}},
}

func startHoldServer(t *testing.T) (*grpc.Server, *grpc.ClientConn) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(&holdServiceDesc, struct{}{})
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func TestStopGRPC_Idle(t *testing.T) {
	srv, _ := startHoldServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, StopGRPC(ctx, srv))
}

func TestStopGRPC_ForcesStuckStream(t *testing.T) {
	srv, conn := startHoldServer(t)

	streamCtx, cancelStream := context.WithCancel(context.Background())
	defer cancelStream()
	stream, err := conn.NewStream(streamCtx, &holdServiceDesc.Streams[0], "/librarian.test.Hold/Hold",
		grpc.CallContentSubtype(CodecName))
	require.NoError(t, err)
	require.NoError(t, stream.CloseSend())
	require.NoError(t, stream.RecvMsg(&ListCatalogRequest{}), "handler is running")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.False(t, StopGRPC(ctx, srv), "open stream keeps the graceful drain from finishing")
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Error(t, stream.RecvMsg(&ListCatalogRequest{}))
}
