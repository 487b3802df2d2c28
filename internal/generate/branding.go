package generate

import "github.com/org/bookforge/pkg/models"

const prefaceImageURL = "https://images.unsplash.com/photo-1620712943543-bcc4688e7485?q=80&w=800&auto=format&fit=crop"

const introHTML = `
<div style="background-color: #000000; padding: 2.5rem; border: 2px solid #f59e0b; border-radius: 12px; margin-bottom: 2rem; box-shadow: 0 10px 30px rgba(245,158,11,0.2); text-align: center;">
    <h3 style="color: #f59e0b; font-family: 'Merriweather', serif; font-size: 1.5rem; font-weight: bold; margin-bottom: 1rem; text-transform: uppercase; letter-spacing: 2px;">
        IABOOKS ORIGINAL
    </h3>
    <hr style="border: 0; border-top: 1px solid #333; margin: 1.5rem auto; width: 50%;">
    <p style="color: #e5e5e5; font-size: 1.1rem; line-height: 1.6; font-family: 'Inter', sans-serif;">
        Esta obra foi arquitetada e escrita em colaboração com <strong>Inteligência Artificial</strong>.
    </p>
    <p style="color: #a3a3a3; font-size: 0.9rem; margin-top: 1rem;">
        Uma produção exclusiva da comunidade.
    </p>
    <div style="margin-top: 2rem;">
        <a href="https://iabooks.com.br" target="_blank" style="display: inline-block; background-color: #f59e0b; color: #000; padding: 10px 20px; font-weight: bold; text-decoration: none; border-radius: 9999px; font-size: 0.9rem;">
            Crie seu eBook Gratuitamente
        </a>
    </div>
</div>
`

const outroHTML = `
<div style="background-color: #1a1a1a; padding: 3rem 2rem; border-top: 4px solid #f59e0b; margin-top: 4rem; text-align: center;">
    <div style="width: 60px; height: 60px; background-color: #f59e0b; border-radius: 50%; display: flex; align-items: center; justify-content: center; margin: 0 auto 1.5rem auto;">
        <span style="font-family: 'Merriweather', serif; font-weight: bold; font-size: 1.5rem; color: #000;">ia</span>
    </div>
    <h3 style="color: #fff; font-size: 1.8rem; font-weight: bold; font-family: 'Merriweather', serif; margin-bottom: 1rem;">
        Publique seu Legado
    </h3>
    <p style="color: #a3a3a3; max-width: 600px; margin: 0 auto 2rem auto; line-height: 1.6;">
        Este livro foi gerado pela tecnologia <strong>IABOOKS</strong>. Junte-se à maior biblioteca gratuita de IA do mundo e compartilhe seu conhecimento.
    </p>
    <a href="https://iabooks.com.br" target="_blank" style="color: #f59e0b; font-weight: bold; font-size: 1.2rem; text-decoration: none; border-bottom: 2px solid #f59e0b;">
        iabooks.com.br
    </a>
</div>
`

// wrapWithBranding surrounds the generated chapters with the fixed
// preface and closing chapters. These two never go through generation.
func wrapWithBranding(chapters []models.Chapter, language string) []models.Chapter {
	introTitle, outroTitle := "IABOOKS Preface", "Digital Legacy"
	if language == "pt" {
		introTitle, outroTitle = "Prefácio IABOOKS", "Legado Digital"
	}

	wrapped := make([]models.Chapter, 0, len(chapters)+2)
	wrapped = append(wrapped, models.Chapter{
		Title:       introTitle,
		Summary:     "Intro",
		Content:     introHTML,
		ImageURL:    prefaceImageURL,
		ImagePrompt: "Futuristic digital library interface",
	})
	wrapped = append(wrapped, chapters...)
	wrapped = append(wrapped, models.Chapter{
		Title:   outroTitle,
		Summary: "Outro",
		Content: outroHTML,
	})
	return wrapped
}
