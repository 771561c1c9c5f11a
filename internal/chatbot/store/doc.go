// Package store 提供知识库的向量存储层。
//
// VectorStore 负责嵌入调用与索引生命周期，具体的向量索引由 VectorIndex
// 实现承载：Pinecone（REST）、Milvus、chromem（嵌入式持久化）以及内存实现。
package store
