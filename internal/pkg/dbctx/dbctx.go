// Package dbctx carries the request context and transaction handle that
// journey and phase mutations share, so a whole advance or renumbering
// runs on one connection.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos fall back to their own handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
