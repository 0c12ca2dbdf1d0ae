// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 超步指标
	superstepsTotal   prometheus.Counter
	messagesTotal     prometheus.Counter
	responsesTotal    prometheus.Counter
	superstepDuration prometheus.Histogram
	batchSize         prometheus.Histogram

	// 运行指标
	runsTotal *prometheus.CounterVec

	// 工具指标
	toolExecutionsTotal   *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	// 审批指标
	approvalsTotal *prometheus.CounterVec

	// 评估指标
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 超步指标
	c.superstepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "supersteps_total",
		Help:      "Total number of completed supersteps",
	})

	c.messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_dispatched_total",
		Help:      "Total number of messages dispatched to agents",
	})

	c.responsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_produced_total",
		Help:      "Total number of response messages produced by agents",
	})

	c.superstepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "superstep_duration_seconds",
		Help:      "Superstep dispatch duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	c.batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "superstep_batch_size",
		Help:      "Number of messages per superstep batch",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})

	// 运行指标
	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of task runs by outcome",
		},
		[]string{"outcome"},
	)

	// 工具指标
	c.toolExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	c.toolExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"tool"},
	)

	// 审批指标
	c.approvalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approvals_total",
			Help:      "Total number of approval decisions",
		},
		[]string{"action", "decision"},
	)

	// 评估指标
	c.evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_tasks_total",
			Help:      "Total number of evaluation tasks by result",
		},
		[]string{"result"},
	)

	c.evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_task_duration_seconds",
		Help:      "Evaluation task duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// ObserveSuperstep 记录一个超步
func (c *Collector) ObserveSuperstep(batchSize, responses int, duration time.Duration) {
	c.superstepsTotal.Inc()
	c.messagesTotal.Add(float64(batchSize))
	c.responsesTotal.Add(float64(responses))
	c.batchSize.Observe(float64(batchSize))
	c.superstepDuration.Observe(duration.Seconds())
}

// ObserveRun 记录一次运行结果
func (c *Collector) ObserveRun(outcome string, processed int) {
	c.runsTotal.WithLabelValues(outcome).Inc()
	c.logger.Debug("run observed", zap.String("outcome", outcome), zap.Int("processed", processed))
}

// ObserveTool 记录工具执行
func (c *Collector) ObserveTool(name string, success bool, duration time.Duration) {
	c.toolExecutionsTotal.WithLabelValues(name, successLabel(success)).Inc()
	c.toolExecutionDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ObserveApproval 记录审批决策
func (c *Collector) ObserveApproval(action string, approved bool) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	c.approvalsTotal.WithLabelValues(action, decision).Inc()
}

// ObserveEvaluation 记录一个评估任务
func (c *Collector) ObserveEvaluation(taskID string, passed bool, duration time.Duration) {
	result := "failed"
	if passed {
		result = "passed"
	}
	c.evaluationsTotal.WithLabelValues(result).Inc()
	c.evaluationDuration.Observe(duration.Seconds())
	c.logger.Debug("evaluation observed", zap.String("task_id", taskID), zap.String("result", result))
}

// =============================================================================
// 🌐 指标端点
// =============================================================================

// Serve exposes the default registry on addr at /metrics until ctx ends.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func successLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
