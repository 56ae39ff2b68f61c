package handler

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/librarian/internal/core/domain"
	"github.com/rl1809/librarian/internal/core/service"
)

const (
	libraryServiceName = "librarian.v1.Library"

	createLoanMethod  = "/" + libraryServiceName + "/CreateLoan"
	listLoansMethod   = "/" + libraryServiceName + "/ListLoans"
	listCatalogMethod = "/" + libraryServiceName + "/ListCatalog"

	authorizationKey = "authorization"
)

type CreateLoanRequest struct {
	RequestID string `json:"request_id"`
	BookID    int64  `json:"book_id"`
	Quantity  int    `json:"quantity"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type CreateLoanResponse struct {
	Loan LoanDTO `json:"loan"`
}

type ListLoansRequest struct{}

type ListLoansResponse struct {
	Loans []LoanDetailDTO `json:"loans"`
}

type ListCatalogRequest struct{}

type ListCatalogResponse struct {
	Entries []CatalogEntryDTO `json:"entries"`
}

// LibraryServer is the server API of librarian.v1.Library.
type LibraryServer interface {
	CreateLoan(context.Context, *CreateLoanRequest) (*CreateLoanResponse, error)
	ListLoans(context.Context, *ListLoansRequest) (*ListLoansResponse, error)
	ListCatalog(context.Context, *ListCatalogRequest) (*ListCatalogResponse, error)
}

type GRPCHandler struct {
	auth    *service.AuthService
	library *service.LibraryService
	loans   *service.LoanService
	logger  *zap.Logger
}

func NewGRPCHandler(auth *service.AuthService, library *service.LibraryService, loans *service.LoanService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{auth: auth, library: library, loans: loans, logger: logger}
}

func (h *GRPCHandler) CreateLoan(ctx context.Context, req *CreateLoanRequest) (*CreateLoanResponse, error) {
	ctx, p, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	loan, err := h.loans.CreateLoan(ctx, domain.LoanRequest{
		RequestID: req.RequestID,
		BookID:    req.BookID,
		UserID:    p.User.ID,
		Quantity:  req.Quantity,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	return &CreateLoanResponse{Loan: toLoanDTO(loan)}, nil
}

func (h *GRPCHandler) ListLoans(ctx context.Context, _ *ListLoansRequest) (*ListLoansResponse, error) {
	ctx, p, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	loans, err := h.loans.ListLoans(ctx, p.User)
	if err != nil {
		return nil, h.statusError(err)
	}
	return &ListLoansResponse{Loans: toLoanDetailDTOs(loans)}, nil
}

func (h *GRPCHandler) ListCatalog(ctx context.Context, _ *ListCatalogRequest) (*ListCatalogResponse, error) {
	ctx, _, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := h.library.ListCatalog(ctx)
	if err != nil {
		return nil, h.statusError(err)
	}
	return &ListCatalogResponse{Entries: toCatalogDTOs(entries)}, nil
}

func (h *GRPCHandler) authenticate(ctx context.Context) (context.Context, domain.Principal, error) {
	var sessionID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(authorizationKey); len(vals) > 0 {
			sessionID = strings.TrimSpace(strings.TrimPrefix(vals[0], "Bearer "))
		}
	}

	p, err := h.auth.Authenticate(ctx, sessionID)
	if err != nil {
		return ctx, domain.Principal{}, h.statusError(err)
	}
	return domain.ContextWithSession(ctx, p.Session), p, nil
}

func (h *GRPCHandler) statusError(err error) error {
	m, message := classify(err)
	if m.httpStatus >= 500 {
		h.logger.Error("rpc failed", zap.Error(err))
	}
	return status.Error(m.grpcCode, message)
}

// RegisterLibraryServer attaches srv to s under librarian.v1.Library.
func RegisterLibraryServer(s grpc.ServiceRegistrar, srv LibraryServer) {
	s.RegisterService(&libraryServiceDesc, srv)
}

var libraryServiceDesc = grpc.ServiceDesc{
	ServiceName: libraryServiceName,
	HandlerType: (*LibraryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateLoan", Handler: createLoanHandler},
		{MethodName: "ListLoans", Handler: listLoansHandler},
		{MethodName: "ListCatalog", Handler: listCatalogHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "librarian/v1/library",
}

func createLoanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateLoanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LibraryServer).CreateLoan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: createLoanMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LibraryServer).CreateLoan(ctx, req.(*CreateLoanRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listLoansHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListLoansRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LibraryServer).ListLoans(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listLoansMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LibraryServer).ListLoans(ctx, req.(*ListLoansRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listCatalogHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListCatalogRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LibraryServer).ListCatalog(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listCatalogMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LibraryServer).ListCatalog(ctx, req.(*ListCatalogRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// LibraryClient calls librarian.v1.Library with the JSON codec.
type LibraryClient struct {
	cc grpc.ClientConnInterface
}

func NewLibraryClient(cc grpc.ClientConnInterface) *LibraryClient {
	return &LibraryClient{cc: cc}
}

// WithSession attaches a session id to outgoing calls.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+sessionID)
}

func (c *LibraryClient) CreateLoan(ctx context.Context, in *CreateLoanRequest, opts ...grpc.CallOption) (*CreateLoanResponse, error) {
	out := new(CreateLoanResponse)
	if err := c.cc.Invoke(ctx, createLoanMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LibraryClient) ListLoans(ctx context.Context, in *ListLoansRequest, opts ...grpc.CallOption) (*ListLoansResponse, error) {
	out := new(ListLoansResponse)
	if err := c.cc.Invoke(ctx, listLoansMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LibraryClient) ListCatalog(ctx context.Context, in *ListCatalogRequest, opts ...grpc.CallOption) (*ListCatalogResponse, error) {
	out := new(ListCatalogResponse)
	if err := c.cc.Invoke(ctx, listCatalogMethod, in, out, c.callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LibraryClient) callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

var _ LibraryServer = (*GRPCHandler)(nil)

// StopGRPC drains srv and forces it closed once ctx is done. It reports whether
// the drain finished in time.
func StopGRPC(ctx context.Context, srv *grpc.Server) bool {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		srv.Stop()
		<-done
		return false
	}
}
