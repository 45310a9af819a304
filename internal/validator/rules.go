package validator

import (
	"log"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var participantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// registerCustomRules регистрирует кастомные правила в экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// без правил приложение не должно запускаться
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'study-email': непустая строка с '@' и точкой в домене
	mustRegister("study-email", validateStudyEmail)

	// 'participant-id': идентификатор становится именем каталога,
	// поэтому разрешены только безопасные символы
	mustRegister("participant-id", validateParticipantID)
}

// IsStudyEmail - та же проверка, что и у правила 'study-email'
func IsStudyEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// IsParticipantID проверяет идентификатор участника
func IsParticipantID(id string) bool {
	return participantIDPattern.MatchString(id)
}

func validateStudyEmail(fl validator.FieldLevel) bool {
	return IsStudyEmail(fl.Field().String())
}

func validateParticipantID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // пустое значение заменяется новым id
	}
	return IsParticipantID(value)
}
