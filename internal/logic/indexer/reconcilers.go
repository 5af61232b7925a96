package indexer

import (
	"token-indexer-sol/internal/logic/domain"
	"token-indexer-sol/internal/logic/reconciler"
	"token-indexer-sol/internal/logic/reducer"
)

type (
	BalanceReconciler = reconciler.Reconciler[domain.BalanceID, domain.BalanceEvent, domain.Balance]
	TokenReconciler   = reconciler.Reconciler[domain.TokenID, domain.TokenEvent, domain.Token]

	BalanceStore     = reconciler.Store[domain.BalanceID, domain.Balance]
	TokenStore       = reconciler.Store[domain.TokenID, domain.Token]
	BalancePublisher = reconciler.Publisher[domain.BalanceEvent, domain.Balance]
	TokenPublisher   = reconciler.Publisher[domain.TokenEvent, domain.Token]
	BalanceChange    = reconciler.Change[domain.BalanceEvent, domain.Balance]
	TokenChange      = reconciler.Change[domain.TokenEvent, domain.Token]
)

func NewBalanceReconciler(store BalanceStore, publisher BalancePublisher) *BalanceReconciler {
	return reconciler.New[domain.BalanceID, domain.BalanceEvent, domain.Balance](
		"balance", store, publisher, reducer.BalanceReducer{}, domain.EmptyBalance)
}

func NewTokenReconciler(store TokenStore, publisher TokenPublisher) *TokenReconciler {
	return reconciler.New[domain.TokenID, domain.TokenEvent, domain.Token](
		"token", store, publisher, reducer.TokenReducer{}, domain.EmptyToken)
}
