package handler

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// CommitStormRequest represents the storm commit request body.
type CommitStormRequest struct {
	Key        string `json:"key" binding:"required" example:"storms/7/hres/2024031512/0b6c.../run.nc"`
	StormID    int64  `json:"storm_id" example:"7"`
	IssuedDate string `json:"issued_date" example:"2024031512"`
	DataType   string `json:"data_type" example:"HRES"`
}

// CommitReservoirRequest represents the reservoir commit request body.
type CommitReservoirRequest struct {
	Key         string `json:"key" binding:"required" example:"reservoirs/operations/2024031512/0b6c.../ops.csv"`
	ReservoirID *int64 `json:"reservoir_id,omitempty" example:"3"`
	FromTime    string `json:"from_time,omitempty" example:"2024-03-15T00:00:00Z"`
	ToTime      string `json:"to_time,omitempty" example:"2024-03-16T00:00:00Z"`
	AddedTime   string `json:"added_time,omitempty" example:"2024-03-15T12:34:00Z"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty" example:"database not reachable"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message" example:"data file deleted"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
