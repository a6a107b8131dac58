// Package services fetches the song catalog and song documents.
//
// # Catalog
//
// [CatalogSource] provides the song index. [CatalogService] fetches it from the object store once
// and caches it until [CatalogService.Invalidate]; [FileCatalog] reads a local JSON file. Entries
// accept both the title/fileName and the name/src spellings.
//
// [FindSong], [SearchSongs], [FilterByCategory] and [Categories] operate on the fetched songs.
// Lookup by title folds case and removes whitespace, so "Above All Powers" finds
// "aboveallpowers.html".
//
// # Documents
//
// [DocumentStore] fetches a song's HTML by content key. [HTTPDocumentStore] reads
// "<document_base_url>/<key>.html" through a rate-limited [ObjectClient]; [DirDocumentStore] reads
// a local directory. [CachedDocumentStore] reads through a [DocumentCache] (the song_documents
// table) and serves stale entries when the upstream fetch fails.
//
// # Authentication
//
// When [shared.AuthConfig] is complete, requests carry an OAuth2 client-credentials token.
//
// # Errors
//
//   - [shared.ErrDocumentNotFound]: the object store returned 404, or the file is missing
//   - [shared.ErrFetchFailed]: transport failure, non-2xx status, or malformed catalog JSON
//   - [shared.ErrSongNotFound]: [FindSong] found no match
package services
