package handler

import (
	"net/http"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/domain"
)

// AdminService reads and changes the fee-receiving holder.
type AdminService interface {
	Admin() string
	SetAdmin(holder string) error
}

// AdminHandler exposes the admin holder setting.
type AdminHandler struct {
	ledgerUC AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledgerUC AdminService) *AdminHandler {
	return &AdminHandler{ledgerUC: ledgerUC}
}

// Get returns the current admin holder.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.AdminResponse{Holder: h.ledgerUC.Admin()})
}

// Set replaces the admin holder. Fees routed after the change go to the new holder.
func (h *AdminHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req dto.SetAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := domain.ValidateHolder(req.Holder); err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin holder", err.Error())
		return
	}

	if err := h.ledgerUC.SetAdmin(req.Holder); err != nil {
		writeError(w, mapDomainError(err), "invalid admin holder", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AdminResponse{Holder: h.ledgerUC.Admin()})
}
