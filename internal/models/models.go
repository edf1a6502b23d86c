package models

// ProcessRequest is the body of POST /process-video.
type ProcessRequest struct {
	GoogleDriveURL string `json:"google_drive_url" validate:"required,url"`
	CallbackURL    string `json:"callback_url" validate:"required,http_url"`
	RowID          string `json:"row_id" validate:"required"`
	OpenAIAPIKey   string `json:"openai_api_key" validate:"required"`
}

type ProcessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RowID   string `json:"row_id"`
}

// CallbackPayload is posted to the caller's callback_url once per accepted request.
type CallbackPayload struct {
	Status        string `json:"status"`
	RowID         string `json:"row_id"`
	Transcript    string `json:"transcript,omitempty"`
	FileID        string `json:"file_id,omitempty"`
	TranscriptURL string `json:"transcript_url,omitempty"`
	Error         string `json:"error,omitempty"`
}

const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusError      = "error"

	MessageProcessingStarted = "Video processing started"
)

func SuccessCallback(rowID, fileID, transcript string) CallbackPayload {
	return CallbackPayload{
		Status:     StatusSuccess,
		RowID:      rowID,
		Transcript: transcript,
		FileID:     fileID,
	}
}

func ErrorCallback(rowID string, err error) CallbackPayload {
	return CallbackPayload{
		Status: StatusError,
		RowID:  rowID,
		Error:  err.Error(),
	}
}
