// Package e2e provides end-to-end tests driving the full ingestion and
// query pipeline over a varied corpus.
package e2e

import "fmt"

// CorpusDocument is a document entry in the test corpus. Slug identifies
// the document across naming schemes; tests derive the stored document
// name from it (slug + extension).
type CorpusDocument struct {
	Slug    string
	Content string
}

// QueryCase defines a question and the document that must appear among
// the answer's sources.
type QueryCase struct {
	Question     string
	ExpectedSlug string
	Description  string
}

// Corpus holds documents and query cases for end-to-end tests.
type Corpus struct {
	Documents []CorpusDocument
	Cases     []QueryCase
}

// BuildCorpus returns a corpus of documents with varied content and one
// query case per document. Each document is short enough to produce a
// single chunk, and each query asks with the exact document content, so
// the deterministic mock embedder scores the right chunk at 1.0 and the
// case can assert the correct source is retrieved.
func BuildCorpus() *Corpus {
	docs := buildDocuments()
	return &Corpus{
		Documents: docs,
		Cases:     buildQueryCases(docs),
	}
}

func buildDocuments() []CorpusDocument {
	topics := []struct {
		slug    string
		content string
	}{
		{"python-guide", "Python is a high-level programming language. The Python programming language is used for web development and data science."},
		{"kubernetes-docs", "Kubernetes is an open-source container orchestration platform. Kubernetes container orchestration automates deployment and scaling."},
		{"react-tutorial", "React is a JavaScript library. React hooks and components enable building user interfaces."},
		{"go-language", "Go is a statically typed language. Go concurrency is achieved with goroutines and channels."},
		{"postgresql-manual", "PostgreSQL is an advanced relational database. The PostgreSQL relational database supports JSON and full-text search."},
		{"docker-handbook", "Docker enables building and shipping applications. Docker container images are portable across environments."},
		{"machine-learning", "Machine learning is a subset of AI. Machine learning algorithms learn patterns from data."},
		{"neural-networks", "Neural networks are inspired by the brain. Neural network deep learning powers modern AI."},
		{"rest-api-design", "REST is an architectural style for APIs. REST API endpoints use HTTP methods and status codes."},
		{"graphql-overview", "GraphQL is a query language for APIs. The GraphQL query language lets clients request exactly what they need."},
		{"redis-cache", "Redis is an in-memory data store. The Redis in-memory cache is used for sessions and caching."},
		{"terraform-iac", "Terraform manages cloud infrastructure. Terraform infrastructure as code is declarative."},
		{"prometheus-metrics", "Prometheus is a monitoring system. Prometheus monitoring metrics are time-series based."},
		{"grpc-overview", "gRPC is a high-performance RPC framework. gRPC remote procedure calls use HTTP/2 and protobuf."},
		{"oauth-authorization", "OAuth 2.0 is an authorization framework. OAuth 2.0 authorization enables secure delegated access."},
		{"cicd-pipelines", "CI/CD automates build and deployment. Continuous integration runs tests on every commit."},
		{"git-workflow", "Git is a distributed version control system. Git version control tracks changes in source code."},
		{"microservices", "Microservices split an app into small services. A microservices architecture enables independent deployment."},
		{"kafka-streams", "Apache Kafka is a distributed event stream platform. Apache Kafka streaming handles high throughput."},
		{"nginx-config", "Nginx is a web server and reverse proxy. The Nginx reverse proxy balances load and serves static files."},
		{"database-indexing", "Indexes speed up queries. Database indexing performance is critical for large tables."},
		{"https-tls", "HTTPS encrypts web traffic. HTTPS TLS SSL certificates verify identity."},
		{"load-balancing", "Load balancers distribute traffic. Load balancing for high availability prevents single points of failure."},
		{"caching-strategies", "Caching improves performance. A caching strategy needs careful cache invalidation design."},
		{"event-sourcing", "Event sourcing stores state as events. Event sourcing with CQRS separates read and write models."},
		{"unit-testing", "Unit tests verify small units of code. Unit testing with mocks isolates dependencies."},
		{"semantic-search", "Semantic search uses meaning not just keywords. Semantic search embeddings capture context."},
		{"vector-database", "Vector databases store embeddings. Vector database similarity uses cosine or dot product."},
		{"embedding-models", "Embeddings represent text as vectors. Embedding models transform text to dense vectors."},
		{"chunking-strategy", "Chunking splits long documents. A chunking strategy with overlap preserves context."},
		{"rag-overview", "Retrieval-augmented generation combines retrieval and generation. It grounds language models in documents."},
		{"prompt-engineering", "Prompts guide model behavior. Few-shot prompt engineering uses examples in the prompt."},
		{"message-queue", "Message queues decouple producers and consumers. Asynchronous message queues enable scaling."},
		{"rate-limiting", "Rate limiting protects APIs. Throttling can be per-user or global."},
		{"circuit-breaker", "Circuit breakers stop cascading failures. The circuit breaker resilience pattern fails fast."},
		{"structured-logging", "Structured logging aids debugging. Structured logs use JSON or key-value fields."},
		{"distributed-tracing", "Tracing follows requests across services. Distributed tracing spans show latency breakdown."},
		{"graceful-shutdown", "Graceful shutdown drains connections. A graceful shutdown handler responds to SIGTERM."},
		{"health-checks", "Health checks indicate readiness. Liveness health checks are used by orchestrators."},
		{"secrets-management", "Secrets must not be stored in code. Secrets management with a vault encrypts and audits access."},
	}

	out := make([]CorpusDocument, 0, len(topics))
	for _, t := range topics {
		out = append(out, CorpusDocument{Slug: t.slug, Content: t.content})
	}
	return out
}

func buildQueryCases(docs []CorpusDocument) []QueryCase {
	cases := make([]QueryCase, 0, len(docs))
	for _, d := range docs {
		cases = append(cases, QueryCase{
			Question:     d.Content,
			ExpectedSlug: d.Slug,
			Description:  fmt.Sprintf("query for %s content should retrieve it", d.Slug),
		})
	}
	return cases
}
