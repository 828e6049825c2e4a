// Package store holds the shop's records and the stores that read and
// write them through the remote API.
package store

import "github.com/gusesba/renova-web/internal/remote"

// Stores groups the stores of one API session.
type Stores struct {
	Clients  ClientStore
	Products ProductStore
	Sells    SellStore
	Config   ConfigStore
}

func NewRemoteStores(c *remote.Client) Stores {
	return Stores{
		Clients:  NewRemoteClientStore(c),
		Products: NewRemoteProductStore(c),
		Sells:    NewRemoteSellStore(c),
		Config:   NewRemoteConfigStore(c),
	}
}
