package errors

import "google.golang.org/grpc/codes"

// voicedesk 服务代码: 21 (业务服务范围 20-79)

var (
	// 请求参数错误 (类别 01)
	ErrInvalidTenant     = Register(New(MakeCode(ServiceVoice, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid or missing tenantId", "租户 ID 无效或缺失"))
	ErrMissingInputs     = Register(New(MakeCode(ServiceVoice, CategoryRequest, 2), 400, codes.InvalidArgument, "Missing tenantId or inputs", "缺少租户 ID 或输入"))
	ErrNoValidInputs     = Register(New(MakeCode(ServiceVoice, CategoryRequest, 3), 400, codes.InvalidArgument, "No valid inputs", "没有有效的输入"))
	ErrInvalidSearchType = Register(New(MakeCode(ServiceVoice, CategoryRequest, 4), 400, codes.InvalidArgument, "Search type must be vector or text", "搜索类型必须为 vector 或 text"))
	ErrInvalidResetMode  = Register(New(MakeCode(ServiceVoice, CategoryRequest, 5), 400, codes.InvalidArgument, "Reset mode must be soft or hard", "重置模式必须为 soft 或 hard"))
	ErrInvalidVertical   = Register(New(MakeCode(ServiceVoice, CategoryRequest, 6), 400, codes.InvalidArgument, "Unknown vertical", "未知的行业类型"))
	ErrInvalidDomainData = Register(New(MakeCode(ServiceVoice, CategoryRequest, 7), 400, codes.InvalidArgument, "Invalid domain data for vertical", "行业数据无效"))
	ErrMissingStreamID   = Register(New(MakeCode(ServiceVoice, CategoryRequest, 8), 400, codes.InvalidArgument, "Missing streamId", "缺少 streamId"))
	ErrInvalidBody       = Register(New(MakeCode(ServiceVoice, CategoryRequest, 9), 400, codes.InvalidArgument, "Invalid request body", "请求体无效"))

	// 资源不存在 (类别 04)
	ErrTenantNotFound = Register(New(MakeCode(ServiceVoice, CategoryResource, 1), 404, codes.NotFound, "Tenant not found", "租户不存在"))
	ErrTicketNotFound = Register(New(MakeCode(ServiceVoice, CategoryResource, 2), 404, codes.NotFound, "Ticket not found", "票据不存在"))

	// 内部错误 (类别 07)
	ErrIngestFailed = Register(New(MakeCode(ServiceVoice, CategoryInternal, 1), 500, codes.Internal, "Ingestion failed", "知识导入失败"))
	ErrSearchFailed = Register(New(MakeCode(ServiceVoice, CategoryInternal, 2), 500, codes.Internal, "Knowledge search failed", "知识检索失败"))

	// 后端不可用 (类别 10)
	ErrBackendUnavailable = Register(New(MakeCode(ServiceVoice, CategoryNetwork, 1), 503, codes.Unavailable, "Storage backend unavailable", "存储后端不可用"))
)
