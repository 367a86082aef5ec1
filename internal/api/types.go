package api

import "github.com/samcharles93/hisread/pkg/his"

type OpenStackRequest struct {
	Path string `json:"path"`
}

type StackInfo struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Path          string            `json:"path"`
	CreatedAt     int64             `json:"created_at"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	FrameCount    int               `json:"frame_count"`
	PixelType     string            `json:"pixel_type"`
	BaseOffset    int64             `json:"base_offset"`
	GapHeaderSize int16             `json:"gap_header_size"`
	State         string            `json:"state"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	MetadataError string            `json:"metadata_error,omitempty"`
}

type StackList struct {
	Object string      `json:"object"`
	Data   []StackInfo `json:"data"`
}

type HeaderChange struct {
	Frame int   `json:"frame"`
	From  int16 `json:"from"`
	To    int16 `json:"to"`
}

type VerifyResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Mode    string         `json:"mode"`
	State   string         `json:"state"`
	Probes  int            `json:"probes"`
	Changes []HeaderChange `json:"changes"`
}

type DeleteStackResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

func newVerifyResponse(id string, rep his.IndexReport) VerifyResponse {
	out := VerifyResponse{
		ID:      id,
		Object:  "stack.verification",
		Mode:    rep.Mode.String(),
		State:   rep.State.String(),
		Probes:  rep.Probes,
		Changes: make([]HeaderChange, 0, len(rep.Changes)),
	}
	for _, c := range rep.Changes {
		out.Changes = append(out.Changes, HeaderChange{Frame: c.Frame, From: c.From, To: c.To})
	}
	return out
}
