package comeback

import "strings"

// socialSignalStrength is the platform-weighted average of normalized
// signal strengths. Unknown platforms contribute with a low default weight.
// No signals at all yields 0.
func (p *Predictor) socialSignalStrength(signals []SocialSignal) float64 {
	if len(signals) == 0 {
		return 0
	}

	var weighted, total float64
	for _, s := range signals {
		w, ok := p.cfg.PlatformWeights[strings.ToLower(s.Platform)]
		if !ok {
			w = p.cfg.DefaultPlatformWeight
		}
		weighted += w * clamp01(s.Strength)
		total += w
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// marketReadiness is the confidence-weighted average of indicator values,
// neutral 0.5 when no indicators are supplied.
func marketReadiness(indicators []MarketIndicator) float64 {
	if len(indicators) == 0 {
		return 0.5
	}

	var weighted, total float64
	for _, m := range indicators {
		c := clamp01(m.Confidence)
		weighted += c * clamp01(m.Value)
		total += c
	}
	if total == 0 {
		return 0.5
	}
	return weighted / total
}
