// Package api exposes the services over a JSON HTTP interface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitbook/splitbook/internal/auth"
	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/middleware"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/service"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Users    *service.UserService
	Groups   *service.GroupService
	Expenses *service.ExpenseService
	Payments *service.PaymentService
	Audit    *service.AuditService
}

// NewHandler creates a new handler over the given services.
func NewHandler(users *service.UserService, groups *service.GroupService, expenses *service.ExpenseService, payments *service.PaymentService, audit *service.AuditService) *Handler {
	return &Handler{Users: users, Groups: groups, Expenses: expenses, Payments: payments, Audit: audit}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the ledger error taxonomy to HTTP statuses so clients get
// actionable failures instead of a generic 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrIntegrity),
		errors.Is(err, ledger.ErrNotSoftDeleted),
		errors.Is(err, auth.ErrEmailExists):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrImmutableAuditLog):
		status = http.StatusForbidden
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// Register creates a user account and returns a session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, token, err := h.Users.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserDTO(user)})
}

// Login authenticates a user and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	user, token, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserDTO(user)})
}

// ListUsers returns all active users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]userDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteUser soft-deletes a user.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Users.SoftDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreUser clears a user's deletion mark.
func (h *Handler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Users.Restore(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeUser hard-deletes a soft-deleted user.
func (h *Handler) PurgeUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Users.HardDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateGroup creates a group owned by the acting user.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decode(w, r, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	group, err := h.Groups.Create(r.Context(), actor, req.Name, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupDTO(group))
}

// ListGroups returns all active groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Groups.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]groupDTO, len(groups))
	for i, g := range groups {
		dtos[i] = toGroupDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetGroup returns one group.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.Groups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTO(group))
}

// UpdateGroup changes a group's name and currency.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if !decode(w, r, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	group, err := h.Groups.Update(r.Context(), actor, chi.URLParam(r, "id"), req.Name, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTO(group))
}

// DeleteGroup soft-deletes a group.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Groups.SoftDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreGroup clears a group's deletion mark.
func (h *Handler) RestoreGroup(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Groups.Restore(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeGroup hard-deletes a soft-deleted group.
func (h *Handler) PurgeGroup(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Groups.HardDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember adds a user to a group.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decode(w, r, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	member, err := h.Groups.AddMember(r.Context(), actor, chi.URLParam(r, "id"), req.UserID, models.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(member))
}

// UpdateMemberRole changes a member's role.
func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req updateMemberRoleRequest
	if !decode(w, r, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	err := h.Groups.UpdateMemberRole(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "userID"), models.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember removes a user from a group.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	err := h.Groups.RemoveMember(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalances returns the group's member balances.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Groups.Balances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTOs(balances))
}

// GetSettlementPlan returns the transfers that would settle the group.
func (h *Handler) GetSettlementPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Groups.SettlementPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTOs(plan))
}

// GetGroupAudit returns every audit entry recorded against a group.
func (h *Handler) GetGroupAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Audit.ForGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}

// GetEntityAudit returns the history of one entity. The entity id may span
// multiple path segments for composite ids like expense/user share keys.
func (h *Handler) GetEntityAudit(w http.ResponseWriter, r *http.Request) {
	entity := models.EntityType(chi.URLParam(r, "entity"))
	entityID := chi.URLParam(r, "*")
	entries, err := h.Audit.ForEntity(r.Context(), entity, entityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}

// GetActorAudit returns every entry a user has produced as actor.
func (h *Handler) GetActorAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Audit.ByActor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}

// CreateExpense records a new expense in a group.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decode(w, r, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	expense, err := h.Expenses.Create(r.Context(), actor, expenseInput(chi.URLParam(r, "id"), req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(expense))
}

// expenseInput maps the wire request onto the service input, fanning the
// share list out to the field the split method consumes.
func expenseInput(groupID string, req expenseRequest) service.ExpenseInput {
	in := service.ExpenseInput{
		GroupID:     groupID,
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Method:      models.SplitMethod(req.SplitMethod),
		ExpenseDate: req.ExpenseDate,
	}
	for _, s := range req.Shares {
		switch in.Method {
		case models.SplitEqual:
			in.Participants = append(in.Participants, s.UserID)
		case models.SplitPercentage:
			in.Percentages = append(in.Percentages, ledger.PercentageShare{UserID: s.UserID, Percentage: s.Percentage})
		case models.SplitExact:
			in.Exact = append(in.Exact, models.ExpenseShare{UserID: s.UserID, Amount: s.Amount})
		case models.SplitShares:
			in.Weights = append(in.Weights, ledger.WeightedShare{UserID: s.UserID, Count: s.ShareCount})
		}
	}
	return in
}

// ListExpenses returns a group's active expenses.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Expenses.ListActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]expenseDTO, len(expenses))
	for i := range expenses {
		dtos[i] = toExpenseDTO(&expenses[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateExpense rewrites an expense and its shares.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decode(w, r, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	id := chi.URLParam(r, "id")
	existing, err := h.Expenses.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	expense, err := h.Expenses.Update(r.Context(), actor, id, expenseInput(existing.GroupID, req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(expense))
}

// CheckSplit reports whether an expense's shares reconcile to its amount.
func (h *Handler) CheckSplit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	valid, err := h.Expenses.CheckSplit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, splitCheckDTO{ExpenseID: id, Valid: valid})
}

// DeleteExpense soft-deletes an expense.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Expenses.SoftDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreExpense clears an expense's deletion mark.
func (h *Handler) RestoreExpense(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Expenses.Restore(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeExpense hard-deletes a soft-deleted expense.
func (h *Handler) PurgeExpense(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Expenses.HardDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreatePayment records a direct payment between two members.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	actor := middleware.ActorFrom(r.Context())
	payment, err := h.Payments.Create(r.Context(), actor, service.PaymentInput{
		GroupID:     chi.URLParam(r, "id"),
		PayerID:     req.PayerID,
		RecipientID: req.RecipientID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PaymentDate: req.PaymentDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// ListPayments returns a group's active payments.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Payments.ListActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]paymentDTO, len(payments))
	for i := range payments {
		dtos[i] = toPaymentDTO(&payments[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeletePayment soft-deletes a payment.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Payments.SoftDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestorePayment clears a payment's deletion mark.
func (h *Handler) RestorePayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Payments.Restore(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgePayment hard-deletes a soft-deleted payment.
func (h *Handler) PurgePayment(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if err := h.Payments.HardDelete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
