package errno

import "fmt"

// code=2xx 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Unauthorized"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}

	// 业务错误码
	ErrMissingFile      = &Errno{Code: 20001, Message: "File is required"}
	ErrUploadNotVideo   = &Errno{Code: 20002, Message: "File must be a video"}
	ErrUploadTooLarge   = &Errno{Code: 20003, Message: "File exceeds the size limit"}
	ErrStorageFailed    = &Errno{Code: 20004, Message: "Failed to persist uploaded file"}
	ErrQueueUnavailable = &Errno{Code: 20005, Message: "Job queue is unavailable, please retry"}
	ErrJobNotFound      = &Errno{Code: 20006, Message: "Job not found"}
	ErrInvalidJobStatus = &Errno{Code: 20007, Message: "Invalid job status"}
	ErrRoleInvalid      = &Errno{Code: 20008, Message: "Role must be student or admin"}
	ErrIdentityRequired = &Errno{Code: 20009, Message: "Authenticated identity is required"}
)

// BizError 业务错误，携带底层原因
type BizError struct {
	Errno *Errno
	Cause error
}

// NewBizError 用底层错误包装业务错误码
func NewBizError(errno *Errno, cause error) *BizError {
	return &BizError{Errno: errno, Cause: cause}
}

func (e *BizError) Error() string {
	if e.Cause == nil {
		return e.Errno.Message
	}
	return fmt.Sprintf("%s: %v", e.Errno.Message, e.Cause)
}

func (e *BizError) Unwrap() error {
	return e.Cause
}
