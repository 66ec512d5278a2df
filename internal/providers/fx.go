package providers

import (
	"github.com/smallbiznis/quotar/internal/providers/email"
	"github.com/smallbiznis/quotar/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
