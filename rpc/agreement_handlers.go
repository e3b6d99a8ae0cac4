package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pactd/core/types"
	"pactd/native/agreement"
	"pactd/native/ledger"
	"pactd/observability"
)

const (
	codeAgreementInvalidParams = -32021
	codeAgreementNotFound      = -32022
	codeAgreementForbidden     = -32023
	codeAgreementConflict      = -32024
	codeAgreementFunds         = -32025
)

type agreementCreateParams struct {
	Initiator    string `json:"initiator"`
	Deposit      string `json:"deposit"`
	Expiration   int64  `json:"expiration"`
	Counterparty string `json:"counterparty,omitempty"`
	Refundable   bool   `json:"refundable,omitempty"`
}

type agreementJoinParams struct {
	ID        uint64 `json:"id"`
	Responder string `json:"responder"`
	Deposit   string `json:"deposit"`
}

type agreementActorParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

type agreementIDParams struct {
	ID uint64 `json:"id"`
}

type agreementListEventsParams struct {
	Prefix string `json:"prefix,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type agreementCreateResult struct {
	ID uint64 `json:"id"`
}

type lockJSON struct {
	Amount      string `json:"amount"`
	CommittedAt int64  `json:"committedAt"`
}

type agreementJSON struct {
	ID            uint64    `json:"id"`
	Initiator     string    `json:"initiator"`
	Counterparty  *string   `json:"counterparty,omitempty"`
	Responder     *string   `json:"responder,omitempty"`
	InitiatorLock lockJSON  `json:"initiatorLock"`
	ResponderLock *lockJSON `json:"responderLock,omitempty"`
	Expiration    int64     `json:"expiration"`
	Refundable    bool      `json:"refundable"`
	CreatedAt     int64     `json:"createdAt"`
	Status        string    `json:"status"`
}

type agreementEventResult struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func parseAddress(raw string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid address %q", raw)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("address must be %d bytes", len(out))
	}
	copy(out[:], decoded)
	return out, nil
}

func parseAmount(raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("amount required")
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func agreementToJSON(a *agreement.Agreement) *agreementJSON {
	out := &agreementJSON{
		ID:        a.ID,
		Initiator: formatAddress(a.Initiator),
		InitiatorLock: lockJSON{
			Amount:      strconv.FormatUint(a.InitiatorLock.Amount, 10),
			CommittedAt: a.InitiatorLock.CommittedAt,
		},
		Expiration: a.Expiration,
		Refundable: a.Refundable,
		CreatedAt:  a.CreatedAt,
		Status:     a.Status.String(),
	}
	if a.Counterparty != ([20]byte{}) {
		counterparty := formatAddress(a.Counterparty)
		out.Counterparty = &counterparty
	}
	if a.Joined {
		responder := formatAddress(a.Responder)
		out.Responder = &responder
	}
	if a.ResponderLock != nil {
		out.ResponderLock = &lockJSON{
			Amount:      strconv.FormatUint(a.ResponderLock.Amount, 10),
			CommittedAt: a.ResponderLock.CommittedAt,
		}
	}
	return out
}

// writeEngineError maps typed engine failures onto stable JSON-RPC error
// codes.
func writeEngineError(w http.ResponseWriter, req *RPCRequest, err error) {
	switch {
	case errors.Is(err, agreement.ErrNotFound):
		writeError(w, http.StatusNotFound, req.ID, codeAgreementNotFound, "not_found", err.Error())
	case errors.Is(err, agreement.ErrUnauthorized):
		writeError(w, http.StatusForbidden, req.ID, codeAgreementForbidden, "forbidden", err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementFunds, "insufficient_balance", err.Error())
	case errors.Is(err, agreement.ErrDuplicateID),
		errors.Is(err, agreement.ErrAlreadyFinal),
		errors.Is(err, agreement.ErrAlreadyMatched),
		errors.Is(err, agreement.ErrNotYetMatched),
		errors.Is(err, agreement.ErrNotYetExpired),
		errors.Is(err, agreement.ErrAlreadyExpired):
		writeError(w, http.StatusConflict, req.ID, codeAgreementConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "internal_error", err.Error())
	}
}

func observeTransition(action string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.Agreement().Observe(action, outcome, time.Since(start))
}

func (s *Server) handleAgreementCreate(w http.ResponseWriter, req *RPCRequest) {
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "internal_error", errUnreachableEngine.Error())
		return
	}
	var params agreementCreateParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, rpcErr.Message, rpcErr.Data)
		return
	}
	initiator, err := parseAddress(params.Initiator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, "invalid_params", err.Error())
		return
	}
	deposit, err := parseAmount(params.Deposit)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, "invalid_params", err.Error())
		return
	}
	counterparty := [20]byte{}
	if strings.TrimSpace(params.Counterparty) != "" {
		counterparty, err = parseAddress(params.Counterparty)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	start := time.Now()
	agr, err := s.engine.Create(initiator, deposit, params.Expiration, counterparty, params.Refundable)
	observeTransition("create", start, err)
	if err != nil {
		writeEngineError(w, req, err)
		return
	}
	s.logger.Info("agreement created",
		"id", agr.ID,
		"initiator", formatAddress(agr.Initiator),
		"expiration", agr.Expiration)
	writeResult(w, req.ID, agreementCreateResult{ID: agr.ID})
}

func (s *Server) handleAgreementJoin(w http.ResponseWriter, req *RPCRequest) {
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "internal_error", errUnreachableEngine.Error())
		return
	}
	var params agreementJoinParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, rpcErr.Message, rpcErr.Data)
		return
	}
	responder, err := parseAddress(params.Responder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, "invalid_params", err.Error())
		return
	}
	deposit, err := parseAmount(params.Deposit)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	err = s.engine.Join(params.ID, responder, deposit)
	observeTransition("join", start, err)
	if err != nil {
		writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAgreementComplete(w http.ResponseWriter, req *RPCRequest) {
	s.handleActorTransition(w, req, "complete", s.engine.Complete)
}

func (s *Server) handleAgreementCancel(w http.ResponseWriter, req *RPCRequest) {
	s.handleActorTransition(w, req, "cancel", s.engine.Cancel)
}

func (s *Server) handleActorTransition(w http.ResponseWriter, req *RPCRequest, action string, transition func(uint64, [20]byte) error) {
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "internal_error", errUnreachableEngine.Error())
		return
	}
	var params agreementActorParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, rpcErr.Message, rpcErr.Data)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, "invalid_params", err.Error())
		return
	}
	start := time.Now()
	err = transition(params.ID, caller)
	observeTransition(action, start, err)
	if err != nil {
		writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAgreementExpire(w http.ResponseWriter, req *RPCRequest) {
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "internal_error", errUnreachableEngine.Error())
		return
	}
	var params agreementIDParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, rpcErr.Message, rpcErr.Data)
		return
	}
	start := time.Now()
	err := s.engine.Expire(params.ID)
	observeTransition("expire", start, err)
	if err != nil {
		writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAgreementGet(w http.ResponseWriter, req *RPCRequest) {
	if s.engine == nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "internal_error", errUnreachableEngine.Error())
		return
	}
	var params agreementIDParams
	if rpcErr := singleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, rpcErr.Message, rpcErr.Data)
		return
	}
	agr, err := s.engine.Get(params.ID)
	if err != nil {
		writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, agreementToJSON(agr))
}

func (s *Server) handleAgreementListEvents(w http.ResponseWriter, req *RPCRequest) {
	if s.recorder == nil {
		writeResult(w, req.ID, []agreementEventResult{})
		return
	}
	params := agreementListEventsParams{}
	if len(req.Params) > 0 {
		if rpcErr := singleParam(req, &params); rpcErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeAgreementInvalidParams, rpcErr.Message, rpcErr.Data)
			return
		}
	}
	entries := s.recorder.List(params.Prefix, params.Limit)
	results := make([]agreementEventResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, agreementEventResult{
			Sequence:   entry.Sequence,
			Type:       entry.Event.Type,
			Attributes: cloneAttributes(entry.Event),
		})
	}
	writeResult(w, req.ID, results)
}

func cloneAttributes(evt types.Event) map[string]string {
	out := make(map[string]string, len(evt.Attributes))
	for k, v := range evt.Attributes {
		out[k] = v
	}
	return out
}
