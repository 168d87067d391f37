package types

// ArtifactStatus summarizes the artifact slot for diagnostics.
type ArtifactStatus struct {
	// Artifact file name, without its directory.
	// example: ckd_model.json
	File string `json:"file" example:"ckd_model.json"`
	// Lifecycle state: empty, ready or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Modification time of the loaded artifact (unix seconds), 0 when nothing is loaded.
	// example: 1700000000
	LoadedModTime int64 `json:"loaded_mtime_unix" example:"1700000000"`
	// Class labels known to the loaded decoder.
	Classes []string `json:"classes,omitempty"`
	// Number of successful loads since start.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Number of failed reloads since start.
	// example: 1
	FailuresTotal uint64 `json:"failures_total" example:"1"`
	// Kind of the last load error, if any: artifact_corrupt or artifact_missing.
	// example: artifact_corrupt
	LastError string `json:"last_error,omitempty" example:"artifact_corrupt"`
}
