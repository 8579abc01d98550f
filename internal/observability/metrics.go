package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MEventPublishFailures    MetricKey = "event_publish_failed_total"
	MOrdersCreated           MetricKey = "orders_created_total"
	MOrderItems              MetricKey = "order_items_total"
	MPayments                MetricKey = "payments_total"
	MCacheLookups            MetricKey = "cache_lookups_total"
	MRateLimited             MetricKey = "rate_limited_total"
)
