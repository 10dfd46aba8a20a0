package otp

import (
	"fmt"
	"log"

	"algoforce/internal/config"
	"algoforce/internal/domain"
	"algoforce/internal/notify"
)

// NewStrategy builds the strategy selected by configuration
func NewStrategy(cfg *config.Config) (Strategy, error) {
	name := cfg.ResolveStrategy()

	var s Strategy
	switch name {
	case config.StrategyHosted:
		if !cfg.Verify.Configured() {
			return nil, fmt.Errorf("hosted strategy requires Twilio Verify credentials")
		}
		s = NewHosted(NewVerifyClient(&cfg.Verify))
	case config.StrategyLocal:
		var sender Sender
		switch cfg.OTP.Delivery {
		case config.DeliverySMS:
			sender = notify.NewSMSSender(&cfg.SMS, cfg.OTP.TTL)
		case config.DeliveryEmail:
			sender = notify.NewEmailSender(&cfg.Email, cfg.OTP.TTL)
		default:
			return nil, fmt.Errorf("unsupported OTP delivery: %s", cfg.OTP.Delivery)
		}
		s = NewLocal(sender, cfg.OTP.TTL, cfg.OTP.HashCost)
	case config.StrategyDev:
		s = NewDev(domain.ChannelKind(cfg.OTP.DevChannel))
	default:
		return nil, fmt.Errorf("unsupported OTP strategy: %s", name)
	}

	log.Printf("[OTP] Using %s strategy (channel=%s)", s.Name(), s.Channel())
	return s, nil
}
