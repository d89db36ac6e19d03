// Package validators registra as tags customizadas no validator do gin.
package validators

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/BruksfildServices01/service-marketplace/internal/domain/actor"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/appointment"
	"github.com/BruksfildServices01/service-marketplace/internal/domain/backjob"
)

var once sync.Once

// Register deve rodar antes do primeiro ShouldBind.
func Register() error {
	var err error
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = RegisterOn(v)
	})
	return err
}

func RegisterOn(v *validator.Validate) error {
	// erros usam o nome do campo no JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	tags := map[string]validator.Func{
		"appointment_status": isAppointmentStatus,
		"admin_action":       isAdminAction,
		"notblank":           notBlank,
		"role":               isRole,
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func isAppointmentStatus(fl validator.FieldLevel) bool {
	_, err := appointment.ParseStatus(fl.Field().String())
	return err == nil
}

func isAdminAction(fl validator.FieldLevel) bool {
	_, err := backjob.ParseAdminAction(fl.Field().String())
	return err == nil
}

func isRole(fl validator.FieldLevel) bool {
	_, ok := actor.ParseRole(fl.Field().String())
	return ok
}

// notblank: "required" aceita só espaços; aqui não.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Code traduz o primeiro erro de validação no error_code da API.
func Code(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid_request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "appointment_status":
		return "invalid_status"
	case "admin_action":
		return "invalid_admin_action"
	case "required", "notblank":
		return fe.Field() + "_required"
	case "role":
		return "invalid_role"
	}
	return "invalid_" + fe.Field()
}
