package listener

import (
	"github.com/tigerroll/setwave/pkg/batch/listener/logging"
	"github.com/tigerroll/setwave/pkg/batch/listener/metrics"
	"github.com/tigerroll/setwave/pkg/batch/listener/notification"
	"github.com/tigerroll/setwave/pkg/batch/listener/tracing"

	"go.uber.org/fx"
)

// Module aggregates all listener modules of the batch framework.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	tracing.Module,
	notification.Module,
)
