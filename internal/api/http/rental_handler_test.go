package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apihttp "shuttering-manager/internal/api/http"
	"shuttering-manager/internal/domain"
	"shuttering-manager/internal/service"
)

func newRentalRouter(svc *MockRentalService) *mux.Router {
	r := mux.NewRouter()
	apihttp.NewRentalHandler(svc).RegisterRoutes(r)
	return r
}

func decodeError(t *testing.T, body string) (string, string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	assert.NoError(t, json.Unmarshal([]byte(body), &envelope))
	return envelope.Error.Kind, envelope.Error.Message
}

func TestRentalHandler_CreateRental(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockRentalService)
		router := newRentalRouter(svc)

		rental := &domain.Rental{ID: 1, CustomerName: "Narinder", Status: domain.RentalStatusActive, TotalAmountCents: 10000}
		svc.On("CreateRental", mock.Anything, mock.MatchedBy(func(in service.CreateRentalInput) bool {
			return in.CustomerName == "Narinder" && len(in.Items) == 1 &&
				in.Items[0].MaterialID == 1 && in.Items[0].Qty == 10 &&
				in.ExpectedReturnDate != nil
		})).Return(rental, nil)

		body := `{
			"customer_name": "Narinder",
			"customer_phone": "9876543210",
			"expected_return_date": "2026-09-07",
			"paid_amount_cents": 2500,
			"items": [{"material_id": 1, "price_per_day_cents": 1000, "qty": 10}]
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var got domain.Rental
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, int32(1), got.ID)
	})

	t.Run("Bad date", func(t *testing.T) {
		svc := new(MockRentalService)
		router := newRentalRouter(svc)

		body := `{"customer_name": "Narinder", "expected_return_date": "07-09-2026", "items": []}`
		req := httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		kind, _ := decodeError(t, rec.Body.String())
		assert.Equal(t, string(domain.KindValidation), kind)
		svc.AssertNotCalled(t, "CreateRental", mock.Anything, mock.Anything)
	})

	t.Run("Out of stock maps to 409", func(t *testing.T) {
		svc := new(MockRentalService)
		router := newRentalRouter(svc)

		svc.On("CreateRental", mock.Anything, mock.Anything).
			Return(nil, domain.NewOutOfStockError("insufficient stock for quantity 10").WithItem(1, nil))

		body := `{"customer_name": "Narinder", "items": [{"material_id": 1, "qty": 10}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		kind, _ := decodeError(t, rec.Body.String())
		assert.Equal(t, string(domain.KindOutOfStock), kind)
	})

	t.Run("Internal errors are not leaked", func(t *testing.T) {
		svc := new(MockRentalService)
		router := newRentalRouter(svc)

		svc.On("CreateRental", mock.Anything, mock.Anything).
			Return(nil, domain.NewInternalError(nil, "connection refused to db-host:5432"))

		body := `{"customer_name": "Narinder", "items": [{"material_id": 1, "qty": 1}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/rentals", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		_, message := decodeError(t, rec.Body.String())
		assert.Equal(t, "internal error", message)
	})
}

func TestRentalHandler_ApplyReturns(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockRentalService)
		router := newRentalRouter(svc)

		rental := &domain.Rental{ID: 5, Status: domain.RentalStatusPartialReturned}
		svc.On("ApplyReturns", mock.Anything, int32(5), []service.ReturnItem{{MaterialID: 1, Qty: 4}}).
			Return(rental, nil)

		body := `{"items": [{"material_id": 1, "qty": 4}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/rentals/5/returns", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var got domain.Rental
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, domain.RentalStatusPartialReturned, got.Status)
	})

	t.Run("Invalid id never reaches the service", func(t *testing.T) {
		svc := new(MockRentalService)
		router := newRentalRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/rentals/abc/returns", strings.NewReader(`{"items":[]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "ApplyReturns", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Conflict maps to 409", func(t *testing.T) {
		svc := new(MockRentalService)
		router := newRentalRouter(svc)

		svc.On("ApplyReturns", mock.Anything, int32(5), mock.Anything).
			Return(nil, domain.NewConflictError("rental 5 is cancelled"))

		req := httptest.NewRequest(http.MethodPost, "/api/rentals/5/returns", strings.NewReader(`{"items":[{"material_id":1,"qty":1}]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRentalHandler_ReturnAll(t *testing.T) {
	svc := new(MockRentalService)
	router := newRentalRouter(svc)

	rental := &domain.Rental{ID: 5, Status: domain.RentalStatusReturned}
	svc.On("ReturnAll", mock.Anything, int32(5)).Return(rental, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/rentals/5/return-all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got domain.Rental
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.RentalStatusReturned, got.Status)
}

func TestRentalHandler_AddPayment(t *testing.T) {
	svc := new(MockRentalService)
	router := newRentalRouter(svc)

	rental := &domain.Rental{ID: 5, PaidAmountCents: 5000, DueAmountCents: 5000}
	svc.On("AddPayment", mock.Anything, int32(5), int64(5000)).Return(rental, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/rentals/5/payments", strings.NewReader(`{"amount_cents": 5000}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got domain.Rental
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(5000), got.PaidAmountCents)
}

func TestRentalHandler_ListRentals(t *testing.T) {
	svc := new(MockRentalService)
	router := newRentalRouter(svc)

	rentals := []domain.Rental{{ID: 1}, {ID: 2}}
	svc.On("ListRentals", mock.Anything, "ACTIVE", int32(2), int32(5)).Return(rentals, int32(12), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rentals?status=ACTIVE&page=2&page_size=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Rentals []domain.Rental `json:"rentals"`
		Total   int32           `json:"total"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Rentals, 2)
	assert.Equal(t, int32(12), got.Total)
}

func TestRentalHandler_GetRental(t *testing.T) {
	svc := new(MockRentalService)
	router := newRentalRouter(svc)

	svc.On("GetRental", mock.Anything, int32(9)).Return(nil, domain.NewNotFoundError("rental 9 not found"))

	req := httptest.NewRequest(http.MethodGet, "/api/rentals/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	kind, _ := decodeError(t, rec.Body.String())
	assert.Equal(t, string(domain.KindNotFound), kind)
}
