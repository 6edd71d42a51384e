package apitest

import (
	"context"

	"github.com/alnah/go-eventadmin/internal/credstore"
)

func withProfile(ctx context.Context, p credstore.Profile) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func profileFrom(ctx context.Context) credstore.Profile {
	p, _ := ctx.Value(contextKey{}).(credstore.Profile)
	return p
}
