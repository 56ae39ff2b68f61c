package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/librarian/internal/core/service"
)

type errorMapping struct {
	target     error
	httpStatus int
	grpcCode   codes.Code
	// detailed errors carry caller-facing context (missing field, counts) and are shown as is
	detailed bool
}

var errorMappings = []errorMapping{
	{service.ErrInvalidLoan, http.StatusBadRequest, codes.InvalidArgument, true},
	{service.ErrInvalidBook, http.StatusBadRequest, codes.InvalidArgument, true},
	{service.ErrInvalidCredentialsInput, http.StatusBadRequest, codes.InvalidArgument, true},
	{service.ErrNotAuthenticated, http.StatusUnauthorized, codes.Unauthenticated, false},
	{service.ErrLoginFailed, http.StatusUnauthorized, codes.Unauthenticated, false},
	{service.ErrBookNotFound, http.StatusNotFound, codes.NotFound, false},
	{service.ErrDuplicateRequest, http.StatusConflict, codes.AlreadyExists, false},
	{service.ErrInsufficientInventory, http.StatusUnprocessableEntity, codes.FailedPrecondition, true},
	{service.ErrAvailabilityCheck, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrLoanCreate, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrInventoryUpdate, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrLoanList, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrCatalogLoad, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrBookCreate, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrBookUpdate, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrRegistrationFailed, http.StatusBadGateway, codes.Unavailable, false},
	{service.ErrLogoutFailed, http.StatusBadGateway, codes.Unavailable, false},
}

// classify picks the status and caller-facing message for a service error.
func classify(err error) (errorMapping, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.detailed {
				return m, err.Error()
			}
			return m, m.target.Error()
		}
	}
	return errorMapping{httpStatus: http.StatusInternalServerError, grpcCode: codes.Internal}, "internal error"
}
