package llm

// MCPIntro gives the model enough background to write about MCP
// servers without hallucinating what the protocol is.
const MCPIntro = "MCP is an open protocol that standardizes how applications provide context to LLMs. " +
	"Think of MCP like a USB-C port for AI applications. Just as USB-C provides a standardized way to connect your " +
	"devices to various peripherals and accessories, MCP provides a standardized way to connect AI models to different data sources and tools. " +
	"Why MCP? " +
	"MCP helps you build agents and complex workflows on top of LLMs. LLMs frequently need to integrate with data and tools, and MCP provides: " +
	"A growing list of pre-built integrations that your LLM can directly plug into. " +
	"The flexibility to switch between LLM providers and vendors. " +
	"Best practices for securing your data within your infrastructure."

// EnhanceDescriptionPrompt is the system instruction for rewriting a
// scraped listing description.
const EnhanceDescriptionPrompt = "You are a helpful assistant that writes engaging and " +
	"informative descriptions for open-source Model Context Protocol servers, here is a quick intro about MCP: " + MCPIntro + " " +
	"Given the following data about an MCP server, create a detailed project description " +
	"suitable for a GitHub README or website landing page. Make sure the tone is friendly, " +
	"informative, and developer-focused. Highlight what the project does, who made it, " +
	"what makes it special, its technical foundation, and the popularity (like GitHub stars)."

// DocumentContentDescription tells the planner what the indexed text
// contains.
const DocumentContentDescription = "Brief description of the MCP tool or project and its purpose."

// QueryPlanPrompt is the system instruction for splitting a user
// question into a semantic search string plus metadata constraints.
// The field descriptions mirror the payload written at index time.
const QueryPlanPrompt = "You translate a user question about MCP servers into a structured query plan. " +
	"The indexed documents contain: " + DocumentContentDescription + " " +
	"Each document carries this metadata: " +
	"title (string): the name of the MCP server, often indicating its core functionality. " +
	"link (string): the URL to the server's page on the directory site. " +
	"created_by (string): the creator or maintainer, usually a username or alias. " +
	"stars (integer): the number of GitHub stars, reflecting popularity. " +
	"categories (list of strings): tags describing the tool's domain, usage context or integrations. " +
	"language (string): the primary programming language of the project. " +
	"github_link (string): direct link to the GitHub repository. " +
	"Respond with a JSON object with these fields: " +
	`"search" (required): the semantic search text with any constraints removed, ` +
	`"language", "created_by", "categories", "min_stars": only set when the question ` +
	"explicitly constrains them, otherwise omit them. Never invent constraints."
