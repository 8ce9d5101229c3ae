package remote

import (
	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/autosave"
	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/store"
	"github.com/existflow/dashcraft/internal/workspace"
)

var (
	_ autosave.Saver           = (*Client)(nil)
	_ store.TemplateRepository = (*Client)(nil)
	_ access.FactSource        = (*Client)(nil)
	_ comments.Backend         = (*Client)(nil)
	_ comments.Subscriber      = (*Client)(nil)
	_ workspace.Backend        = (*Client)(nil)
)
