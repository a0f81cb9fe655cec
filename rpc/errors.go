package rpc

import (
	"errors"
	"net/http"

	"lendledger/native/lending"
	"lendledger/native/liquidity"
	"lendledger/storage"
)

// errorToRPC translates engine sentinels into JSON-RPC error envelopes with
// an appropriate HTTP status.
func errorToRPC(err error) (int, *RPCError) {
	switch {
	case err == nil:
		return http.StatusOK, nil
	case errors.Is(err, lending.ErrUnauthorized) || errors.Is(err, liquidity.ErrUnauthorized):
		return http.StatusForbidden, &RPCError{Code: codeUnauthorized, Message: err.Error()}
	case errors.Is(err, lending.ErrLoanNotFound) ||
		errors.Is(err, liquidity.ErrPoolNotFound) ||
		errors.Is(err, liquidity.ErrProviderNotFound) ||
		errors.Is(err, liquidity.ErrNoStake) ||
		errors.Is(err, storage.ErrKeyNotFound):
		return http.StatusNotFound, &RPCError{Code: codeServerError, Message: err.Error()}
	case errors.Is(err, lending.ErrInvalidAmount) ||
		errors.Is(err, lending.ErrInvalidDuration) ||
		errors.Is(err, lending.ErrInvalidRiskMultiplier) ||
		errors.Is(err, lending.ErrRateTooHigh) ||
		errors.Is(err, liquidity.ErrInvalidAmount):
		return http.StatusBadRequest, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return http.StatusBadRequest, &RPCError{Code: codeServerError, Message: err.Error()}
	}
}

func respond(w http.ResponseWriter, req *RPCRequest, result interface{}, err error) {
	if err != nil {
		status, rpcErr := errorToRPC(err)
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}
