package dto

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 向 gin 的校验引擎注册自定义规则
//   - notblank: 去除首尾空白后不能为空
//   - attendance_status: present | absent | late
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		return err
	}
	return v.RegisterValidation("attendance_status", attendanceStatus)
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func attendanceStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "present", "absent", "late":
		return true
	}
	return false
}
