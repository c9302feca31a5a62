package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(provisioningJobsTotal, provisioningJobAttempts) }

var (
	provisioningJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_jobs_total",
			Help: "Provisioning jobs handled by the job runner, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed', 'dropped'
	)

	provisioningJobAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provisioning_job_attempts",
			Help:    "Number of attempts a provisioning job needed before it settled.",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		},
	)
)

func IncProvisioningJob(status string) {
	provisioningJobsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveJobAttempts(n int) {
	provisioningJobAttempts.Observe(float64(n))
}
