package notification

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

const (
	TemplatePostClaimed         = "post_claimed"
	TemplatePickupReadyDonor    = "pickup_ready_donor"
	TemplatePickupReadyReceiver = "pickup_ready_receiver"
	TemplatePickupCompleted     = "pickup_completed"
	TemplatePickupNotCompleted  = "pickup_not_completed"
	TemplateClaimCancelled      = "claim_cancelled"
	TemplatePostExpired         = "post_expired"
	TemplateExpiringSoon        = "expiring_soon"
)

type messageTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

const layout = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
<h2 style="color: #2e7d32;">Surplus Share</h2>
{{template "content" .}}
<p style="font-size: 12px; color: #888;">You can change which notifications you receive in your profile settings.</p>
</body>
</html>`

var templateSources = map[string][2]string{
	TemplatePostClaimed: {
		`Your post "{{.Title}}" was claimed`,
		`<p>Hi {{.Name}},</p><p>Your surplus post <b>{{.Title}}</b> has been claimed by a receiver.{{if .PickupWindow}} Pickup is scheduled for {{.PickupWindow}}.{{end}}</p>`,
	},
	TemplatePickupReadyDonor: {
		`Pickup code for "{{.Title}}"`,
		`<p>Hi {{.Name}},</p><p><b>{{.Title}}</b> is ready for pickup. Ask the receiver to confirm the handover, then complete the pickup with this code:</p><p style="font-size: 28px; letter-spacing: 6px;"><b>{{.OTP}}</b></p>`,
	},
	TemplatePickupReadyReceiver: {
		`"{{.Title}}" is ready for pickup`,
		`<p>Hi {{.Name}},</p><p><b>{{.Title}}</b> is ready for pickup at {{.PickupAddress}}.{{if .PickupWindow}} Please arrive during {{.PickupWindow}}.{{end}}</p>`,
	},
	TemplatePickupCompleted: {
		`Pickup of "{{.Title}}" completed`,
		`<p>Hi {{.Name}},</p><p>The pickup of <b>{{.Title}}</b> is complete. This donation saved about {{printf "%.1f" .CO2eKg}} kg CO2e and {{printf "%.0f" .WaterLiters}} litres of water.</p>`,
	},
	TemplatePickupNotCompleted: {
		`Pickup of "{{.Title}}" was missed`,
		`<p>Hi {{.Name}},</p><p>The pickup window for <b>{{.Title}}</b> closed without the pickup being completed.</p>`,
	},
	TemplateClaimCancelled: {
		`Claim on "{{.Title}}" cancelled`,
		`<p>Hi {{.Name}},</p><p>The receiver cancelled their claim on <b>{{.Title}}</b>. The post is available again.</p>`,
	},
	TemplatePostExpired: {
		`"{{.Title}}" has expired`,
		`<p>Hi {{.Name}},</p><p>Your surplus post <b>{{.Title}}</b> passed its expiry and is no longer listed.</p>`,
	},
	TemplateExpiringSoon: {
		`"{{.Title}}" expires within {{.ThresholdHours}} hours`,
		`<p>Hi {{.Name}},</p><p>Your surplus post <b>{{.Title}}</b> has not been claimed yet and expires at {{.ExpiresAt}}.</p>`,
	},
}

func parseTemplates() (map[string]messageTemplate, error) {
	out := make(map[string]messageTemplate, len(templateSources))
	for key, src := range templateSources {
		subject, err := texttemplate.New(key).Option("missingkey=zero").Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("parse subject %s: %w", key, err)
		}
		body, err := template.New(key).Option("missingkey=zero").Parse(layout)
		if err != nil {
			return nil, fmt.Errorf("parse layout %s: %w", key, err)
		}
		if _, err := body.New("content").Parse(src[1]); err != nil {
			return nil, fmt.Errorf("parse body %s: %w", key, err)
		}
		out[key] = messageTemplate{subject: subject, body: body}
	}
	return out, nil
}

func (t messageTemplate) render(payload map[string]any) (Message, error) {
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, payload); err != nil {
		return Message{}, err
	}
	if err := t.body.Execute(&body, payload); err != nil {
		return Message{}, err
	}
	return Message{Subject: subject.String(), HTMLBody: body.String()}, nil
}
