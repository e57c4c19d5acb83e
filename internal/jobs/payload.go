package jobs

// Payload is the JSON shape of a video result at the HTTP and CLI
// boundaries.
type Payload struct {
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	OperationName string `json:"operationName,omitempty"`
	CacheKey      string `json:"cacheKey,omitempty"`
	RawCacheKey   string `json:"rawCacheKey,omitempty"`
	FromCache     bool   `json:"fromCache"`
	VideoURL      string `json:"videoUrl,omitempty"`
	VideoPath     string `json:"videoPath,omitempty"`
	EmbedURL      string `json:"embedUrl,omitempty"`
	MimeType      string `json:"mimeType,omitempty"`
	ByteSize      int64  `json:"byteSize,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Payload renders r for clients. A running job is a success: the client
// polls again with the operation name.
func (r Result) Payload() Payload {
	p := Payload{
		Success:       r.Outcome != OutcomeFailed,
		Status:        string(r.Outcome),
		OperationName: r.OperationName,
		CacheKey:      r.CacheKey,
		RawCacheKey:   r.RawCacheKey,
		FromCache:     r.FromCache,
		EmbedURL:      r.EmbedHTML,
		Error:         r.Error,
	}
	if r.Video != nil {
		p.VideoURL = r.Video.URL
		p.VideoPath = r.Video.Path
		p.MimeType = r.Video.MimeType
		p.ByteSize = r.Video.ByteSize
	}
	if r.Outcome == OutcomeStillRunning {
		p.Message = "Video generation in progress; poll again with the operation name"
	}
	return p
}
