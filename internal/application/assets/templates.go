package assets

import (
	"strings"

	domain "github.com/bryanwahyu/competeiq/internal/domain/assets"
)

const wordsPerSecond = 2.5

var scriptTemplates = map[domain.Style]string{
	domain.StyleProfessional: `
Welcome to our comprehensive solution for modern businesses.
In today's competitive landscape, companies need innovative tools that deliver real results.

Our platform offers advanced features that set us apart from competitors,
including superior user experience, cutting-edge AI capabilities,
and comprehensive integrations that streamline your workflow.

With our solution, you can expect improved efficiency, reduced costs,
and a significant competitive advantage in your market.

Don't let your competitors get ahead. Choose the solution that's built for success.
`,
	domain.StyleCasual: `
Hey there! Looking for something that actually works?
We've got you covered with our awesome platform that's changing the game.

Unlike those other guys, we focus on what really matters - making your life easier.
Our intuitive interface and powerful features will have you wondering how you ever managed without us.

Plus, our AI capabilities are seriously impressive.
It's like having a genius assistant that never takes a coffee break!

Ready to level up? Let's make it happen!
`,
	domain.StyleTechnical: `
Our enterprise-grade solution leverages cutting-edge technologies
to deliver unparalleled performance and scalability.

Built on a modern microservices architecture with real-time data processing,
our platform integrates seamlessly with existing infrastructure while providing
advanced analytics and machine learning capabilities.

Key technical advantages include:
- Sub-second response times
- 99.9% uptime SLA
- RESTful API with comprehensive documentation
- Multi-tenant architecture with enterprise security

Deploy with confidence knowing you have the most robust solution available.
`,
}

// NormalizeStyle maps unknown styles to professional
func NormalizeStyle(s string) domain.Style {
	st := domain.Style(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := scriptTemplates[st]; ok {
		return st
	}
	return domain.StyleProfessional
}

// Script renders the template of style cut to roughly duration seconds of speech:
// under 50 target words keeps the first sentence, under 100 the first two.
func Script(style domain.Style, duration int) string {
	tpl, ok := scriptTemplates[style]
	if !ok {
		tpl = scriptTemplates[domain.StyleProfessional]
	}
	target := int(float64(duration) * wordsPerSecond)

	sentences := strings.Split(tpl, ".")
	switch {
	case target < 50:
		tpl = sentences[0] + "."
	case target < 100:
		n := 2
		if len(sentences) < n {
			n = len(sentences)
		}
		tpl = strings.Join(sentences[:n], ". ") + "."
	}
	return strings.TrimSpace(tpl)
}
