package dto

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/krrishnaik/Markly/internal/model"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators 向 gin 的 binding 引擎注册自定义校验标签，多次调用只注册一次：
//
//	hhmm    24 小时制 HH:MM
//	isodate YYYY-MM-DD
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("binding 引擎不是 validator/v10")
			return
		}
		registerErr = Register(v)
	})
	return registerErr
}

// Register 在指定 validator 上注册自定义标签
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return model.ValidClock(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return model.ValidDate(fl.Field().String())
	})
}
