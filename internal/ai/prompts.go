// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

// designerSystem is shared by every prompt that returns a page.
const designerSystem = `ATUE COMO: Designer de Interface premiado e Engenheiro Frontend Sênior.
OBJETIVO: Criar interfaces modernas, limpas, responsivas e focadas em conversão.
PADRÃO ESTÉTICO: Design industrial e minimalista usando Tailwind CSS.
FORMATO: Responda apenas com o documento HTML completo, de <!DOCTYPE html> até </html>, sem explicações.`

const skeletonPrompt = `MISSÃO: Criar um SKELETON (wireframe) HTML industrial.
REGRAS:
1. Use Tailwind CSS v3.
2. Use apenas tons de cinza (bg-zinc-50, text-slate-900, border-zinc-200).
3. Foco total na estrutura de seções baseada nisto: "%s".
4. Use placeholders como %s.
5. Retorne apenas o HTML completo dentro de tags <html>.`

const archetypesSystem = `Você é diretor de arte de uma agência de sites para pequenos negócios.
Responda apenas com JSON válido.`

const archetypesPrompt = `Analise o nicho "%s" e sugira %d arquétipos de marca distintos (ex: Premium, Radical, Minimalista).
Para cada um defina cores em hexadecimal e uma fonte do Google Fonts que combine.
Retorne um array JSON de objetos no formato:
[{"name": "...", "description": "...", "styleSuggestion": {"primaryColor": "#...", "secondaryColor": "#...", "backgroundColor": "#...", "surfaceColor": "#...", "textColor": "#...", "fontFamily": "..."}}]`

const pickTemplatePrompt = `Analise os dados deste lead: %s
Qual destes templates é o mais adequado para converter este cliente específico?
TEMPLATES DISPONÍVEIS:
%s
Retorne apenas o ID do template escolhido.`

const assemblePrompt = `SISTEMA DE MONTAGEM.

SKELETON BASE (HTML):
%s

DADOS REAIS DO LEAD:
%s

CONFIGURAÇÃO DE DESIGN (ARQUÉTIPO %s):
%s

INSTRUÇÕES:
1. Substitua os placeholders {{...}} por textos persuasivos baseados nos dados do lead.
2. Aplique as cores da configuração usando as classes bg-primary, text-primary, bg-surface e as variáveis CSS --primary, --secondary, --bg, --surface e --text.
3. Mantenha a estrutura do skeleton idêntica, apenas preencha o conteúdo.
4. Garanta que o menu e os botões de contato (WhatsApp) funcionem.
5. Retorne o HTML final.`

const generatePrompt = `Gere um site completo de uma página para "%s" no nicho "%s". Use Tailwind CSS.
Use as classes bg-primary, text-primary e bg-surface para as cores da marca.`

const generateLeadSuffix = `

DADOS DO NEGÓCIO (use apenas o que for verdadeiro):
%s`

const fixResponsivePrompt = `Corrija a responsividade mobile deste HTML sem mudar textos, imagens ou cores.
Garanta menu utilizável em telas pequenas, sem rolagem horizontal e com tipografia legível.

HTML ATUAL:
%s`

const editPrompt = `Edite o HTML conforme a instrução, preservando todo o resto do documento.
INSTRUÇÃO: %s

HTML ATUAL:
%s`
