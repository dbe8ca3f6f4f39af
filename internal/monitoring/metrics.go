package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Direction label values for byte counters.
const (
	DirectionToAlice = "to_alice"
	DirectionToBob   = "to_bob"
)

var (
	// PipesActive tracks currently allocated pipe sides.
	PipesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nanoos_pipe_sides_active",
		Help: "Number of pipe sides currently allocated",
	})

	// PipesBroken counts Open → Broken transitions.
	PipesBroken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nanoos_pipes_broken_total",
		Help: "Total number of pipes transitioned to the broken state",
	})

	// WeldsTotal counts successful weld operations.
	WeldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nanoos_pipe_welds_total",
		Help: "Total number of pipe weld operations",
	})

	// UnweldsTotal counts successful unweld operations.
	UnweldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nanoos_pipe_unwelds_total",
		Help: "Total number of pipe unweld operations",
	})

	// BytesSent counts bytes accepted by send, per direction.
	BytesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanoos_pipe_bytes_sent_total",
			Help: "Total bytes accepted into pipe buffers",
		},
		[]string{"direction"},
	)

	// BytesReceived counts bytes drained by receive, per direction.
	BytesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanoos_pipe_bytes_received_total",
			Help: "Total bytes drained from pipe buffers",
		},
		[]string{"direction"},
	)

	// TransferTimeouts counts sends/receives that moved fewer bytes than
	// requested: a timeout expiry, a broken pipe, or a receive whose
	// buffer was larger than what was buffered.
	TransferTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanoos_pipe_transfer_timeouts_total",
			Help: "Total pipe transfers that moved fewer bytes than requested",
		},
		[]string{"op"},
	)

	// LoopDispatches counts event loop callback dispatches.
	LoopDispatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nanoos_eventloop_dispatches_total",
		Help: "Total event loop callback dispatches",
	})
)

// RecordSend records bytes accepted into a direction buffer.
func RecordSend(direction string, n int) {
	if n > 0 {
		BytesSent.WithLabelValues(direction).Add(float64(n))
	}
}

// RecordReceive records bytes drained from a direction buffer.
func RecordReceive(direction string, n int) {
	if n > 0 {
		BytesReceived.WithLabelValues(direction).Add(float64(n))
	}
}
