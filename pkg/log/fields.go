package log

const (
	// Request
	FieldRequestID    = "request_id"
	FieldInvocationID = "invocation_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatus       = "status"
	FieldLatency      = "latency_ms"
	FieldClientIP     = "client_ip"

	// Service
	FieldService  = "service"
	FieldFunction = "function"
	FieldVariant  = "variant"

	// Objects
	FieldContainer   = "container"
	FieldBlob        = "blob"
	FieldThumbnail   = "thumbnail"
	FieldContentType = "content_type"
	FieldSize        = "size"

	// Metadata record
	FieldPartitionKey = "partition_key"
	FieldRowKey       = "row_key"

	// Failures
	FieldStage = "stage"
	FieldKind  = "kind"
)
