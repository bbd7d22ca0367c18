package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/readlog/internal/middleware"
	"github.com/hitoshi/readlog/internal/model"
)

// PreferenceStore は通知設定ハンドラーが必要とする永続化インターフェース。
// repository.PreferenceRepositoryの部分集合として定義する。
type PreferenceStore interface {
	FindByAccountID(ctx context.Context, accountID string) (*model.NotificationPreference, error)
	Upsert(ctx context.Context, pref *model.NotificationPreference) (*model.NotificationPreference, error)
}

// PreferenceHandler は通知設定のHTTPハンドラー。
type PreferenceHandler struct {
	store PreferenceStore
}

// NewPreferenceHandler はPreferenceHandlerを生成する。
func NewPreferenceHandler(store PreferenceStore) *PreferenceHandler {
	return &PreferenceHandler{store: store}
}

type preferenceRequest struct {
	DeviceToken string `json:"deviceToken"`
	Hour        int    `json:"hour"`
	Minute      int    `json:"minute"`
	Days        int    `json:"days"`
}

type preferenceResponse struct {
	DeviceToken string    `json:"deviceToken"`
	Hour        int       `json:"hour"`
	Minute      int       `json:"minute"`
	Days        int       `json:"days"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GetPreference は認証済みアカウントの通知設定を返す。
// GET /api/preferences
func (h *PreferenceHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	pref, err := h.store.FindByAccountID(r.Context(), accountID)
	if err != nil {
		slog.Error("failed to find notification preference",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if pref == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewPreferenceNotFoundError())
		return
	}

	writePreferenceResponse(w, pref)
}

// UpdatePreference は認証済みアカウントの通知設定を冪等にUPSERTする。
// 分は10分刻みのみ受け付ける（ディスパッチ間隔と揃える）。
// PUT /api/preferences
func (h *PreferenceHandler) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req preferenceRequest
	if err := decodeStrictJSON(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidBodyError())
		return
	}

	if msg, ok := validatePreference(&req); !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidBody,
			Message:  msg,
			Category: "caller",
		})
		return
	}

	saved, err := h.store.Upsert(r.Context(), &model.NotificationPreference{
		AccountID:   accountID,
		DeviceToken: req.DeviceToken,
		Hour:        req.Hour,
		Minute:      req.Minute,
		Days:        req.Days,
	})
	if err != nil {
		slog.Error("failed to upsert notification preference",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writePreferenceResponse(w, saved)
}

// validatePreference は通知設定リクエストを検証する。
func validatePreference(req *preferenceRequest) (string, bool) {
	if req.DeviceToken == "" {
		return "Device token is required", false
	}
	if req.Hour < 0 || req.Hour > 23 {
		return "Hour must be between 0 and 23", false
	}
	if req.Minute < 0 || req.Minute > 59 || req.Minute%10 != 0 {
		return "Minute must be a multiple of 10 between 0 and 50", false
	}
	if req.Days < 0 || req.Days > 127 {
		return "Days must be a bitmask between 0 and 127", false
	}
	return "", true
}

func writePreferenceResponse(w http.ResponseWriter, pref *model.NotificationPreference) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(preferenceResponse{
		DeviceToken: pref.DeviceToken,
		Hour:        pref.Hour,
		Minute:      pref.Minute,
		Days:        pref.Days,
		UpdatedAt:   pref.UpdatedAt,
	})
}
