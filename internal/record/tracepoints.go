package record

// Framework, middleware, transport and wire layer tracepoint names.
const (
	RCLInit                         = "ros2:rcl_init"
	RCLNodeInit                     = "ros2:rcl_node_init"
	RCLPublisherInit                = "ros2:rcl_publisher_init"
	RCLSubscriptionInit             = "ros2:rcl_subscription_init"
	RMWPublisherInit                = "ros2:rmw_publisher_init"
	RMWSubscriptionInit             = "ros2:rmw_subscription_init"
	RCLCPPCallbackRegister          = "ros2:rclcpp_callback_register"
	RCLCPPSubscriptionInit          = "ros2:rclcpp_subscription_init"
	RCLCPPSubscriptionCallbackAdded = "ros2:rclcpp_subscription_callback_added"
	DDSCreateReader                 = "dds:create_reader"
	DDSCreateWriter                 = "dds:create_writer"
	RCLTimerInit                    = "ros2:rcl_timer_init"
	RCLCPPTimerLinkNode             = "ros2:rclcpp_timer_link_node"
	RCLCPPTimerCallbackAdded        = "ros2:rclcpp_timer_callback_added"
	RCLCPPBufferToIPB               = "ros2:rclcpp_buffer_to_ipb"
	RCLCPPIPBToSubscription         = "ros2:rclcpp_ipb_to_subscription"
	CallbackStart                   = "ros2:callback_start"
	CallbackEnd                     = "ros2:callback_end"
	RCLCPPPublish                   = "ros2:rclcpp_publish"
	RCLPublish                      = "ros2:rcl_publish"
	RMWPublish                      = "ros2:rmw_publish"
	DDSWrite                        = "dds:write"
	RCLCPPIntraPublish              = "ros2:rclcpp_intra_publish"
	RCLCPPRingBufferEnqueue         = "ros2:rclcpp_ring_buffer_enqueue"
	RCLCPPRingBufferDequeue         = "ros2:rclcpp_ring_buffer_dequeue"
	RCLCPPTake                      = "ros2:rclcpp_take"
	RCLTake                         = "ros2:rcl_take"
	RMWTake                         = "ros2:rmw_take"
	DDSRead                         = "dds:read"
)

// DiscardedEvents is the marker record a decoder emits when the tracer
// reported lost packets. Its count field is accumulated into
// Collection.Discarded instead of being stored as a record.
const DiscardedEvents = "trace:discarded_events"

// Reserved keys carrying record metadata in flat maps.
const (
	KeyName      = "_name"
	KeyTimestamp = "_timestamp"
	KeyThread    = "vtid"
)

// DefaultIgnored lists LTTng bookkeeping tracepoints that never take part in
// graph construction.
var DefaultIgnored = []string{
	"kmem_mm_page_alloc",
	"kmem_mm_page_free",
	"lttng_ust_statedump:start",
	"lttng_ust_statedump:procname",
	"lttng_ust_lib:load",
	"lttng_ust_lib:build_id",
	"lttng_ust_lib:debug_link",
	"lttng_ust_statedump:bin_info",
	"lttng_ust_statedump:build_id",
	"lttng_ust_statedump:debug_link",
	"lttng_ust_statedump:end",
}

// Kind is the coerced type of a record field.
type Kind int

const (
	// KindUnknown fields are coerced by inspecting the decoded value.
	KindUnknown Kind = iota
	KindHandle
	KindInt
	KindString
	KindBool
	KindBytes
)

// fieldKinds is the conversion table applied to decoded payload and context
// fields.
var fieldKinds = map[string]Kind{
	"context_handle":          KindHandle,
	"node_handle":             KindHandle,
	"rmw_publisher_handle":    KindHandle,
	"rmw_subscription_handle": KindHandle,
	"rmw_service_handle":      KindHandle,
	"subscription_handle":     KindHandle,
	"publisher_handle":        KindHandle,
	"service_handle":          KindHandle,
	"timer_handle":            KindHandle,
	"rmw_handle":              KindHandle,
	"reader":                  KindHandle,
	"writer":                  KindHandle,
	"message":                 KindHandle,
	"callback":                KindHandle,
	"subscription":            KindHandle,
	"buffer":                  KindHandle,
	"ipb":                     KindHandle,
	"data":                    KindHandle,
	"handle":                  KindHandle,
	"state_machine":           KindHandle,
	"node_name":               KindString,
	"namespace":               KindString,
	"version":                 KindString,
	"topic_name":              KindString,
	"service_name":            KindString,
	"procname":                KindString,
	"symbol":                  KindString,
	"vpid":                    KindInt,
	"vtid":                    KindInt,
	"cpu_id":                  KindInt,
	"timestamp":               KindInt,
	"source_timestamp":        KindInt,
	"period":                  KindInt,
	"timeout":                 KindInt,
	"queue_depth":             KindInt,
	"index":                   KindInt,
	"size":                    KindInt,
	"capacity":                KindInt,
	"count":                   KindInt,
	"taken":                   KindBool,
	"is_intra_process":        KindBool,
	"overwritten":             KindBool,
	"gid":                     KindBytes,
}

// FieldKind returns the conversion kind registered for a field name.
func FieldKind(field string) Kind {
	return fieldKinds[field]
}
