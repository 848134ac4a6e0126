package service

// validatePaging 校验分页参数：页码从 0 开始，每页至少 1 条。
func validatePaging(page, size int) error {
	if page < 0 || size < 1 {
		return ErrInvalidInput
	}
	return nil
}
