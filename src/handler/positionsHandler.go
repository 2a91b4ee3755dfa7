package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/auth"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
	"tradingjournal/src/service"
)

const tradeDateLayout = "2006-01-02"

type positionSearcher interface {
	Search(ctx context.Context, options repository.PositionSearchOptions) ([]model.TradingPosition, int64, error)
}

type positionFinder interface {
	FindByID(ctx context.Context, id uint) (*model.TradingPosition, error)
}

type positionWriter interface {
	OpenPosition(ctx context.Context, userID uint, input service.OpenPositionInput) (*model.TradingPosition, error)
	AddTransaction(ctx context.Context, position *model.TradingPosition, input service.TransactionInput) (*model.TradingTransaction, error)
	DeletePosition(ctx context.Context, position *model.TradingPosition) error
}

// SearchPositionsHandler returns a handler that lists positions of the
// authenticated user. Supports pagination and filters (emiten, status,
// date_from, date_to).
func SearchPositionsHandler(repo positionSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var emiten *string
		if emitenParam := r.URL.Query().Get("emiten"); emitenParam != "" {
			emiten = &emitenParam
		}

		var status *string
		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			if statusParam != model.PositionStatusOpen && statusParam != model.PositionStatusClosed {
				respondError(w, http.StatusBadRequest, "invalid status")
				return
			}
			status = &statusParam
		}

		var dateFrom, dateTo *time.Time
		if fromParam := r.URL.Query().Get("date_from"); fromParam != "" {
			parsed, err := time.Parse(tradeDateLayout, fromParam)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid date_from")
				return
			}
			dateFrom = &parsed
		}
		if toParam := r.URL.Query().Get("date_to"); toParam != "" {
			parsed, err := time.Parse(tradeDateLayout, toParam)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid date_to")
				return
			}
			dateTo = &parsed
		}

		page := 1
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			parsedPage, err := strconv.Atoi(pageParam)
			if err != nil || parsedPage <= 0 {
				respondError(w, http.StatusBadRequest, "invalid page")
				return
			}
			page = parsedPage
		}

		perPage := 20
		if perPageParam := r.URL.Query().Get("per_page"); perPageParam != "" {
			parsedSize, err := strconv.Atoi(perPageParam)
			if err != nil || parsedSize <= 0 || parsedSize > 100 {
				respondError(w, http.StatusBadRequest, "invalid per_page")
				return
			}
			perPage = parsedSize
		}

		positions, total, err := repo.Search(r.Context(), repository.PositionSearchOptions{
			UserID:   user.ID,
			Emiten:   emiten,
			Status:   status,
			DateFrom: dateFrom,
			DateTo:   dateTo,
			Limit:    perPage,
			Offset:   (page - 1) * perPage,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search positions")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		respondSuccess(w, http.StatusOK, "Positions retrieved", map[string]interface{}{
			"items": positions,
			"meta":  NewPageMeta(total, page, perPage, len(positions)),
		})
	}
}

// CreatePositionHandler returns a handler that opens a position together with
// its initial transaction.
func CreatePositionHandler(svc positionWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var payload model.CreatePositionPayload
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		date, err := parseTradeDate(payload.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date")
			return
		}

		position, err := svc.OpenPosition(r.Context(), user.ID, service.OpenPositionInput{
			Date:         date,
			Emiten:       payload.Emiten,
			Type:         payload.Type,
			BuyRangeLow:  payload.BuyRangeLow,
			BuyRangeHigh: payload.BuyRangeHigh,
			EntryPrice:   payload.EntryPrice,
			StopLoss:     payload.StopLoss,
			TakeProfit1:  payload.TakeProfit1,
			TakeProfit2:  payload.TakeProfit2,
			Volume:       payload.Volume,
			Strategy:     payload.Strategy,
			Notes:        payload.Notes,
		})
		if err != nil {
			respondServiceError(w, err)
			return
		}

		respondSuccess(w, http.StatusCreated, "Position created", position)
	}
}

// GetPositionHandler returns a handler that shows one position with its
// summary and transaction log.
func GetPositionHandler(repo positionFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		position, done := loadOwnedPosition(w, r, repo)
		if done {
			return
		}

		respondSuccess(w, http.StatusOK, "Position retrieved", position)
	}
}

// AddTransactionHandler returns a handler that records a buy/sell fill
// against a position and refreshes the derived summary.
func AddTransactionHandler(repo positionFinder, svc positionWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		position, done := loadOwnedPosition(w, r, repo)
		if done {
			return
		}

		var payload model.AddTransactionPayload
		if err := decodeJSON(r, &payload); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		date, err := parseTradeDate(payload.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date")
			return
		}

		transaction, err := svc.AddTransaction(r.Context(), position, service.TransactionInput{
			Date:   date,
			Type:   payload.Type,
			Price:  payload.Price,
			Volume: payload.Volume,
			Notes:  payload.Notes,
		})
		if err != nil {
			respondServiceError(w, err)
			return
		}

		respondSuccess(w, http.StatusCreated, "Transaction recorded", map[string]interface{}{
			"transaction": transaction,
			"summary":     position.Summary,
			"status":      position.Status,
		})
	}
}

// DeletePositionHandler returns a handler that removes a position with its
// transaction log and summary.
func DeletePositionHandler(repo positionFinder, svc positionWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		position, done := loadOwnedPosition(w, r, repo)
		if done {
			return
		}

		if err := svc.DeletePosition(r.Context(), position); err != nil {
			logger.WithError(err).Error("failed to delete position")
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		respondSuccess(w, http.StatusOK, "Position deleted", nil)
	}
}

// loadOwnedPosition resolves the {id} route param to a position owned by the
// authenticated user. The second return reports whether a response has
// already been written.
func loadOwnedPosition(
	w http.ResponseWriter,
	r *http.Request,
	repo positionFinder,
) (*model.TradingPosition, bool) {

	user, ok := auth.GetUserFromContext(r.Context())
	if !ok || user == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, true
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid position id")
		return nil, true
	}

	position, err := repo.FindByID(r.Context(), uint(id))
	if err != nil {
		logger.WithError(err).Error("failed to fetch position")
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return nil, true
	}
	if position == nil {
		respondError(w, http.StatusNotFound, "Position not found")
		return nil, true
	}
	if !position.IsOwnedBy(user.ID) {
		respondError(w, http.StatusForbidden, "Forbidden")
		return nil, true
	}

	return position, false
}

func parseTradeDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(tradeDateLayout, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// DefaultSearchPositionsHandler wires the handler to the production repository.
func DefaultSearchPositionsHandler() http.HandlerFunc {
	return SearchPositionsHandler(repository.NewPositionRepository())
}

// DefaultCreatePositionHandler wires the handler to the production service.
func DefaultCreatePositionHandler(svc *service.TradingService) http.HandlerFunc {
	return CreatePositionHandler(svc)
}

// DefaultGetPositionHandler wires the handler to the production repository.
func DefaultGetPositionHandler() http.HandlerFunc {
	return GetPositionHandler(repository.NewPositionRepository())
}

// DefaultAddTransactionHandler wires the handler to the production service.
func DefaultAddTransactionHandler(svc *service.TradingService) http.HandlerFunc {
	return AddTransactionHandler(repository.NewPositionRepository(), svc)
}

// DefaultDeletePositionHandler wires the handler to the production service.
func DefaultDeletePositionHandler(svc *service.TradingService) http.HandlerFunc {
	return DeletePositionHandler(repository.NewPositionRepository(), svc)
}
