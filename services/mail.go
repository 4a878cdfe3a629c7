package services

import (
	"fmt"
	"html"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
)

const mailFooter = `<hr style="margin: 30px 0; border: none; border-top: 1px solid #ddd;">
<p style="color: #999; font-size: 12px;">Car Portal Support Team</p>
</div>`

func minutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}

func otpMail(to, code string, ttl time.Duration) utils.Mail {
	m := minutes(ttl)
	return utils.Mail{
		To:      to,
		Subject: "OTP Verification - Car Portal",
		Text:    fmt.Sprintf("Your OTP for account verification is: %s. This OTP will expire in %d minutes.", code, m),
		HTML: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<h2 style="color: #667eea;">OTP Verification</h2>
<p>You have successfully registered for the Car Portal.</p>
<p>Your OTP for account verification is:</p>
<div style="font-size: 24px; font-weight: bold; color: #667eea; text-align: center; margin: 20px 0;">%s</div>
<p>This OTP will expire in %d minutes.</p>
<p>If you didn't request this, please ignore this email.</p>
%s`, html.EscapeString(code), m, mailFooter),
	}
}

func resetMail(to, link string, ttl time.Duration) utils.Mail {
	esc := html.EscapeString(link)
	return utils.Mail{
		To:      to,
		Subject: "Password Reset Request - Car Portal",
		Text:    "Click the link to reset your password: " + link,
		HTML: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<h2 style="color: #667eea;">Password Reset Request</h2>
<p>You requested to reset your password for your Car Portal account.</p>
<p>Click the button below to reset your password:</p>
<a href="%s" style="display: inline-block; padding: 12px 24px; margin: 20px 0; background-color: #667eea; color: white; text-decoration: none; border-radius: 5px;">Reset Password</a>
<p>Or copy and paste this link into your browser:</p>
<p style="color: #667eea; word-break: break-all;">%s</p>
<p><strong>This link will expire in %s.</strong></p>
<p>If you didn't request this, please ignore this email.</p>
%s`, esc, esc, humanDuration(ttl), mailFooter),
	}
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int(d / time.Hour); h > 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	return fmt.Sprintf("%d minutes", minutes(d))
}
