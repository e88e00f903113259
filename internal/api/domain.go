package api

import (
	"github.com/JaimeStill/erisa/internal/annotations"
	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/dashboard"
	"github.com/JaimeStill/erisa/internal/imports"
	"github.com/JaimeStill/erisa/internal/users"
)

// Domain holds all domain systems. The server shares one Domain between the
// API and the web pages.
type Domain struct {
	Claims      claims.System
	Annotations annotations.System
	Imports     imports.System
	Dashboard   dashboard.System
	Users       users.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	importsSystem := imports.New(db, runtime.Logger, runtime.Pagination)

	return &Domain{
		Claims:      claims.New(db, runtime.Logger, runtime.Pagination),
		Annotations: annotations.New(db, runtime.Logger),
		Imports:     importsSystem,
		Dashboard:   dashboard.New(db, importsSystem, runtime.Logger),
		Users:       users.New(db, runtime.Logger),
	}
}
