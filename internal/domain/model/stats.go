package model

// ServiceStats is a point-in-time snapshot of the screening pipeline,
// served verbatim on the stats endpoint. QueueLength is the momentary
// backlog; QueueCapacity is the configured bound the backpressure check
// enforces.
type ServiceStats struct {
	Started          bool `json:"started"`
	ModelLoaded      bool `json:"model_loaded"`
	WorkerCount      int  `json:"worker_count"`
	QueueLength      int  `json:"queue_length"`
	QueueCapacity    int  `json:"queue_capacity"`
	MaxSampledFrames int  `json:"max_sampled_frames"`
}
