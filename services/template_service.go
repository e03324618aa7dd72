package services

import (
	"fmt"

	"github.com/crasadev/crasabot/models"
)

// TemplateSender is the outbound surface the template layer needs. Satisfied
// by MetaService and by test fakes.
type TemplateSender interface {
	SendTemplate(to, templateName, languageCode string, parameters []string) error
}

// templateSpec describes one pre-approved message template.
type templateSpec struct {
	language  string
	numParams int
}

// TemplateService validates template sends against the registry of templates
// the business has had approved.
type TemplateService struct {
	sender    TemplateSender
	templates map[string]templateSpec
}

func NewTemplateService(sender TemplateSender) *TemplateService {
	return &TemplateService{
		sender: sender,
		templates: map[string]templateSpec{
			"order_reminder":  {language: "en", numParams: 1},
			"weekly_promo":    {language: "en", numParams: 0},
			"order_confirmed": {language: "en", numParams: 2},
			"hello_world":     {language: "en_US", numParams: 0},
		},
	}
}

// Send delivers a registered template, rejecting unknown names and wrong
// parameter counts before anything reaches the wire.
func (s *TemplateService) Send(to, templateName string, parameters []string) error {
	spec, ok := s.templates[templateName]
	if !ok {
		return fmt.Errorf("unknown template %q", templateName)
	}
	if len(parameters) != spec.numParams {
		return fmt.Errorf("template %q expects %d parameters, got %d", templateName, spec.numParams, len(parameters))
	}
	return s.sender.SendTemplate(to, templateName, spec.language, parameters)
}

// SendReminder delivers the order reminder template to a user, filling the
// single body parameter with their name or phone.
func (s *TemplateService) SendReminder(user *models.User) error {
	name := user.Name
	if name == "" {
		name = user.Phone
	}
	return s.Send(user.Phone, "order_reminder", []string{name})
}
