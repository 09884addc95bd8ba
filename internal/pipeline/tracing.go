package pipeline

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/dgallion1/quizzer/internal/pipeline")
