package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數，且最多兩位小數
	ErrInvalidAmount = errors.New("invalid amount: must be positive with at most 2 decimal places")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUserNotFound 找不到使用者
	ErrUserNotFound = errors.New("user not found")

	// ErrStatementNotFound 找不到交易紀錄
	ErrStatementNotFound = errors.New("statement not found")

	// ErrPersistence 儲存層錯誤，實際原因會以 %w 包在後面
	ErrPersistence = errors.New("persistence error")

	// ErrDescriptionRequired 描述為必填
	ErrDescriptionRequired = errors.New("description is required")

	// ErrInvalidOperationType 不支援的交易類型
	ErrInvalidOperationType = errors.New("invalid operation type")

	// ErrSameAccount 轉帳的付款方與收款方不可相同
	ErrSameAccount = errors.New("sender and recipient must be different users")

	// ErrEmailAlreadyExists Email 已被註冊
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrInvalidUserInput 使用者資料不完整
	ErrInvalidUserInput = errors.New("name, email and password are required")

	// ErrInvalidCredentials 帳號或密碼錯誤
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInvalidToken 無效或過期的 token
	ErrInvalidToken = errors.New("invalid token")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)
