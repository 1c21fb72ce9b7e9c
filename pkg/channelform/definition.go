// Package channelform defines the channel sign-up form: its fields and rules,
// the named email checks, the defaults loader backed by the user directory,
// and the submit wiring that resets the form after a successful submission.
package channelform

import (
	"github.com/goliatone/go-formstate/pkg/model"
)

// Field paths.
const (
	PathUsername     = "username"
	PathEmail        = "email"
	PathChannel      = "channel"
	PathTwitter      = "social.twitter"
	PathFacebook     = "social.facebook"
	PathPhoneNumbers = "phoneNumbers"
	PathPhNumbers    = "phNumbers"
	PathAge          = "age"
	PathDOB          = "dob"
)

// EmailPattern is the address shape accepted by the email field.
const EmailPattern = "^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$"

// Named rules registered for the email field.
const (
	RuleNotAdmin       = "notAdmin"
	RuleNotBlackListed = "notBlackListed"
	RuleEmailAvailable = "emailAvailable"
)

// Messages shown to the user.
const (
	MsgUsernameRequired = "Username is required"
	MsgInvalidEmail     = "Invalid email form"
	MsgNotAdmin         = "Enter a different email address"
	MsgNotBlackListed   = "This domain is not supported"
	MsgEmailTaken       = "Email already exists"
	MsgChannelRequired  = "Channel is required"
	MsgAgeRequired      = "Age is required"
	MsgDOBRequired      = "Date of birth is required"
)

// AdminEmail is the reserved address rejected by notAdmin.
const AdminEmail = "admin@example.com"

// BlacklistedDomain is the suffix rejected by notBlackListed.
const BlacklistedDomain = "baddomain.com"

// Definition returns the declarative channel form.
func Definition() model.FormModel {
	return model.FormModel{
		ID:    "youtube-form",
		Title: "Youtube Form",
		Fields: []model.Field{
			{
				Name:      PathUsername,
				Type:      model.FieldTypeString,
				InputType: model.InputText,
				Label:     "Username",
				Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleRequired, Message: MsgUsernameRequired},
				},
			},
			{
				Name:      PathEmail,
				Type:      model.FieldTypeString,
				InputType: model.InputEmail,
				Label:     "E-mail",
				Validations: []model.ValidationRule{
					{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": EmailPattern}, Message: MsgInvalidEmail},
					{Kind: model.ValidationRuleValidate, Params: map[string]string{"name": RuleNotAdmin}, Message: MsgNotAdmin},
					{Kind: model.ValidationRuleValidate, Params: map[string]string{"name": RuleNotBlackListed}, Message: MsgNotBlackListed},
					{Kind: model.ValidationRuleValidateAsync, Params: map[string]string{"name": RuleEmailAvailable}, Message: MsgEmailTaken},
				},
			},
			{
				Name:      PathChannel,
				Type:      model.FieldTypeString,
				InputType: model.InputText,
				Label:     "Channel",
				Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleRequired, Message: MsgChannelRequired},
				},
			},
			{
				Name: "social",
				Type: model.FieldTypeObject,
				Nested: []model.Field{
					{Name: "twitter", Type: model.FieldTypeString, InputType: model.InputText, Label: "Twitter", DisabledWhen: `channel == ""`},
					{Name: "facebook", Type: model.FieldTypeString, InputType: model.InputText, Label: "Facebook"},
				},
			},
			{
				Name:     PathPhoneNumbers,
				Type:     model.FieldTypeArray,
				MaxItems: 2,
				Items:    &model.Field{Type: model.FieldTypeString, InputType: model.InputText},
				Metadata: map[string]string{
					"label.0": "Primary Phone Number",
					"label.1": "Secondary Phone Number",
				},
			},
			{
				Name:     PathPhNumbers,
				Type:     model.FieldTypeArray,
				Label:    "List of phone numbers",
				Dynamic:  true,
				MinItems: 1,
				Items: &model.Field{
					Type: model.FieldTypeObject,
					Nested: []model.Field{
						{Name: "number", Type: model.FieldTypeString, InputType: model.InputNumber},
					},
				},
				Metadata: map[string]string{
					"add.label":    "Add phone number",
					"remove.label": "Remove",
				},
			},
			{
				Name:      PathAge,
				Type:      model.FieldTypeNumber,
				InputType: model.InputNumber,
				Label:     "Age",
				Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleRequired, Message: MsgAgeRequired},
				},
			},
			{
				Name:      PathDOB,
				Type:      model.FieldTypeDate,
				InputType: model.InputDate,
				Label:     "Date of Birth",
				Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleRequired, Message: MsgDOBRequired},
				},
			},
		},
	}
}

// EmptyRow is the value appended by the add control.
func EmptyRow() map[string]any {
	return map[string]any{"number": ""}
}
