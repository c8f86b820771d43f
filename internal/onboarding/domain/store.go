package domain

import "context"

// DraftStore persists one draft per key. Load reports absent for missing,
// expired or unreadable records and never fails.
type DraftStore interface {
	Save(ctx context.Context, key string, draft *FormDraft) error
	Load(ctx context.Context, key string) (*FormDraft, bool)
	Clear(ctx context.Context, key string) error
}
